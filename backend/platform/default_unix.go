//go:build linux || freebsd || openbsd || netbsd

package platform

const defaultBackend = NameMPRIS
