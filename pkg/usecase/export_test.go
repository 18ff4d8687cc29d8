package usecase

// SearchCount returns how many user searches the resolver has sent.
func (r *IdentityResolver) SearchCount() int {
	return r.searches
}

var BuildResultBlocks = buildResultBlocks
