//go:build !unix

package fork

const supported = false
