package daytime

// BuildVersion holds the JSON build descriptor and is overwritten at link time
// with -ldflags "-X github.com/openkcm/daytime.BuildVersion=...".
var BuildVersion = "{}"
