package version

// Version is the current version of the peerline CLI.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/kuldeep921997/peerline/internal/version.Version=v1.0.0'"
var Version = "dev"
