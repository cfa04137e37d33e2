package version

// Version is stamped at build time with
// -ldflags "-X github.com/openrits/openrits/internal/version.Version=$(git describe --tags)".
var Version = "0.0.0-dev"
