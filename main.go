package main

//go:generate swag init

import (
	"os"

	"github.com/satheeshds/cdaplus/commands"
	_ "github.com/satheeshds/cdaplus/docs"
)

var version = "dev"

// @title           CDA+ API
// @version         1.0.0
// @description     API for contracts, their dynamic field schemas and the activities logged against them.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.basic  BasicAuth

func main() {
	commands.SetVersion(version)
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
