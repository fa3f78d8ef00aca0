//go:build !linux && !freebsd && !openbsd && !netbsd && !darwin && !windows

package platform

const defaultBackend = NameHeadless
