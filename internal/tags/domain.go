package tags

// Tag is a canonical post tag. Usage is derived from post associations and
// never stored on the row itself.
type Tag struct {
	ID       int64
	Name     string
	Category string
	Aliases  []string
}

// HasAlias reports whether name is one of the tag's aliases.
func (t *Tag) HasAlias(name string) bool {
	for _, alias := range t.Aliases {
		if alias == name {
			return true
		}
	}
	return false
}
