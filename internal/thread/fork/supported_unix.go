//go:build unix

package fork

const supported = true
