// Package cache stores compiled render graph plans keyed by the structural
// fingerprint of the declarations that produced them.
//
// A frame graph is usually rebuilt every frame with the same shape. The
// cache lets the builder skip resolution, aliasing and synchronization when
// the fingerprint and the canonical declaration bytes both match an entry.
//
//	c := cache.New[*plan](64)
//	if p, ok := c.Get(fp, canon); ok {
//	    return p
//	}
//	c.Put(fp, canon, compile())
//
// # Thread Safety
//
// Cache is safe for concurrent use by builders finalizing on different
// goroutines. It must not be copied after creation.
package cache
