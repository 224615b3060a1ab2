// Command genmasterkey writes the master key that encrypts saved sessions.
// The key goes to $XDG_CONFIG_HOME/handauth/master.key unless a path is
// given as the only argument.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrylevesque/handauth/internal/config"
	"github.com/harrylevesque/handauth/internal/store"
)

func main() {
	keyFile := filepath.Join(config.XDGConfigDir(), store.MasterKeyFile)
	if len(os.Args) > 1 {
		keyFile = os.Args[1]
	}
	if _, err := os.Stat(keyFile); err == nil {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Refusing to overwrite.\n", keyFile)
		os.Exit(1)
	}
	hexKey, err := store.GenerateMasterKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating random key: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(keyFile), 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", filepath.Dir(keyFile), err)
		os.Exit(1)
	}
	if err := os.WriteFile(keyFile, []byte(hexKey+"\n"), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", keyFile, err)
		os.Exit(1)
	}
	fmt.Printf("Master key written to %s\n", keyFile)
}
