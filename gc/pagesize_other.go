//go:build !unix

package gc

// Page size assumed on targets without a unix page size query.
const fallbackPageSize = 4096

func systemPageSize() uint64 {
	return fallbackPageSize
}
