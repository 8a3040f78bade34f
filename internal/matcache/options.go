package matcache

// Option configures a Resolver created by NewResolver.
type Option func(*Resolver)

// WithObserver attaches an Observer that receives hit and miss events
// for the lifetime of the resolver.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}
