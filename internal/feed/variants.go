package feed

import "errors"

// endpointVariants returns the ordered URL path variants tried for a
// category: the live "open" listing first, the broader "all" listing next,
// and the bare category path as a last resort.
func endpointVariants(category string) []string {
	return []string{category + "/open", category + "/all", category}
}

// fallback walks the endpoint variants for one category, recording the
// last failure so the caller can report why the category was skipped.
type fallback struct {
	variants []string
	idx      int
	lastErr  error
}

func newFallback(category string) *fallback {
	return &fallback{variants: endpointVariants(category)}
}

// next returns the next variant path to try, or false when all variants
// have been attempted.
func (f *fallback) next() (string, bool) {
	if f.idx >= len(f.variants) {
		return "", false
	}
	v := f.variants[f.idx]
	f.idx++
	return v, true
}

// fail records a variant failure and reports whether another variant may
// still be tried. Authorization and permission failures cannot be fixed by
// a different URL shape, and a response that decoded but was not a feature
// collection means the endpoint exists and answers with the wrong thing;
// all three stop the walk.
func (f *fallback) fail(err error) bool {
	f.lastErr = err
	if errors.Is(err, ErrInvalidAPIKey) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrDataShape) {
		return false
	}
	return f.idx < len(f.variants)
}
