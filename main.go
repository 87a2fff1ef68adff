package main

import (
	"errors"
	"log"
	"os"

	"github.com/thiagokokada/pushhooks/cmd"
	"github.com/thiagokokada/pushhooks/internal/hook"
)

func main() {
	if err := cmd.Run(); err != nil {
		// The rejection message has already been written for the pusher.
		if errors.Is(err, hook.ErrConflictMarker) {
			os.Exit(1)
		}
		log.Fatalf("pushhooks: %v", err)
	}
}
