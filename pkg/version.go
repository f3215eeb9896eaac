package pkg

// Version, build sırasında ldflags ile override edilir:
//
//	go build -ldflags "-X github.com/candemir/meydan/pkg.Version=1.2.3"
var Version = "0.1.0-dev"
