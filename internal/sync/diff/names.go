package diff

// Result partitions two name lists. Remove keeps the order of the remote
// list; Create and Keep keep the order of the desired list. Names compare
// byte for byte.
type Result struct {
	Remove []string
	Create []string
	Keep   []string
}

// Names computes remote minus desired, desired minus remote and their
// intersection. Duplicates in either list are preserved.
func Names(desired, remote []string) Result {
	desiredSet := make(map[string]struct{}, len(desired))
	for _, n := range desired {
		desiredSet[n] = struct{}{}
	}
	remoteSet := make(map[string]struct{}, len(remote))
	for _, n := range remote {
		remoteSet[n] = struct{}{}
	}

	var result Result
	for _, n := range remote {
		if _, ok := desiredSet[n]; !ok {
			result.Remove = append(result.Remove, n)
		}
	}
	for _, n := range desired {
		if _, ok := remoteSet[n]; ok {
			result.Keep = append(result.Keep, n)
		} else {
			result.Create = append(result.Create, n)
		}
	}
	return result
}
