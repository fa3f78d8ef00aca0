package platform

const defaultBackend = NameSMTC
