// cmd/flood-collector/main.go
package main

import (
	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/bstardust/flood-survey-collector/pkg/cli"
)

func main() {
	// Initialize logger
	logger.Init()

	// Execute CLI
	cli.Execute()
}
