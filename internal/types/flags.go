package types

// GlobalFlags are the persistent flags shared by every command
type GlobalFlags struct {
	Config       string
	LogFile      string
	OutputFormat OutputFormat
	Quiet        bool
	Verbose      bool
	Debug        bool
	NoColor      bool
}
