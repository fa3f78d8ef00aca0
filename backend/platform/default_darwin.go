package platform

const defaultBackend = NameMPMedia
