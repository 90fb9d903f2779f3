package version

// Version is the current release of Wiki Weaver
const Version = "0.1.0"
