package main

import (
	"context"
	"flag"
	"log"

	"github.com/hashicorp/terraform-plugin-framework/providerserver"

	tinytasksprovider "github.com/geoffreymagana/Tiny-Tasks-VA-sub000/terraform/provider"
)

var (
	version string = "dev"
	commit  string = "unknown"
)

func main() {
	var debug bool

	flag.BoolVar(&debug, "debug", false, "set to true to run the provider with support for debuggers like delve")
	flag.Parse()

	opts := providerserver.ServeOpts{
		Address: "registry.terraform.io/geoffreymagana/tinytasks",
		Debug:   debug,
	}

	err := providerserver.Serve(context.Background(), tinytasksprovider.New(version, commit), opts)
	if err != nil {
		log.Fatal(err.Error())
	}
}
