package ocl

// marshaler holds the reusable native-shaped argument buffers of one command
// queue: three coordinate triples for origins, regions and work sizes, and
// one pointer-sized scalar for foreign object handles. Writing a buffer
// fully overwrites the slots the call needs and returns a slice aliasing the
// array, sized exactly for the driver call that immediately follows.
//
// The buffers are owned exclusively by the queue and reused for every call,
// which is what makes enqueue operations allocation-free and also what makes
// a CommandQueue unsafe for concurrent enqueueing without external locking.
type marshaler struct {
	vecA [3]uint64
	vecB [3]uint64
	vecC [3]uint64
	ptrA [1]uint64
}

// fill3 overwrites all three slots of dst and returns the full triple.
func fill3(dst *[3]uint64, x, y, z uint64) []uint64 {
	dst[0], dst[1], dst[2] = x, y, z
	return dst[:]
}

// fill2 overwrites the first two slots of dst and returns a 2-element view.
func fill2(dst *[3]uint64, x, y uint64) []uint64 {
	dst[0], dst[1] = x, y
	return dst[:2]
}

// fill1 overwrites the first slot of dst and returns a 1-element view.
func fill1(dst *[3]uint64, x uint64) []uint64 {
	dst[0] = x
	return dst[:1]
}

// fillPtr overwrites the pointer-sized scalar buffer and returns it.
func fillPtr(dst *[1]uint64, v uint64) []uint64 {
	dst[0] = v
	return dst[:]
}
