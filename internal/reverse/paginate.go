package reverse

// Page slices the similar matches of a result by offset and limit. The exact
// match is not paged; it rides along on every page. Out-of-range offsets
// yield an empty page rather than an error.
func Page(result Result, offset, limit int) Result {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}
	total := len(result.Similar)
	if offset >= total {
		return Result{Exact: result.Exact, Similar: []Match{}}
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return Result{
		Exact:   result.Exact,
		Similar: append([]Match(nil), result.Similar[offset:end]...),
	}
}
