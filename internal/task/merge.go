package task

// Merge reconciles a local snapshot against a remote one into a single
// canonical collection. Rules:
//
//   - Identity is the id field and nothing else.
//   - Last-write-wins: for two records with the same id, the one with
//     the strictly greater lastModified supplies the content. On an
//     exact tie the first-seen record wins, which with the local-first
//     iteration order below means the local copy.
//   - Tombstone dominance: if either side carries deleted=true the
//     merged record is forced deleted, whatever the timestamps say. A
//     concurrent edit can never resurrect a delete; a restore takes
//     effect by publishing a snapshot that replaces the remote
//     tombstone, after which neither side carries it.
//
// Tombstones are preserved in the output so they keep propagating to
// other devices; presentation filtering happens elsewhere (Visible).
// Output order is unspecified.
//
// Merge is pure: neither input is modified and the caller decides
// whether to persist or publish the result.
func Merge(local, remote []Task) []Task {
	byID := make(map[int64]Task, len(local)+len(remote))
	order := make([]int64, 0, len(local)+len(remote))

	consider := func(in Task) {
		cur, ok := byID[in.ID]
		if !ok {
			byID[in.ID] = in
			order = append(order, in.ID)
			return
		}
		winner := cur
		if in.LastModified > cur.LastModified {
			winner = in
		}
		if cur.Deleted || in.Deleted {
			winner.Deleted = true
		}
		byID[in.ID] = winner
	}

	for _, t := range local {
		consider(t)
	}
	for _, t := range remote {
		consider(t)
	}

	out := make([]Task, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// Purge drops tombstoned records and nothing else.
func Purge(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Deleted {
			out = append(out, t)
		}
	}
	return out
}
