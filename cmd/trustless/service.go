package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/trustless-go/trustless/pkg/guard"
	"github.com/trustless-go/trustless/pkg/service"
	"github.com/trustless-go/trustless/pkg/store"
)

func newService() (*service.Service, error) {
	return service.New()
}

// storeName resolves the --store flag (inherited from the root
// command), falling back to the configured default store.
func storeName(flags *pflag.FlagSet, svc *service.Service) (string, error) {
	name, _ := flags.GetString("store")
	if name != "" {
		return name, nil
	}
	if def := svc.DefaultStoreName(); def != "" {
		return def, nil
	}
	return "", fmt.Errorf("no --store given and no default store configured")
}

func openStore(svc *service.Service, name string) (*store.SecretsStore, error) {
	return svc.Open(name)
}

// readPassphrase prompts on the terminal without echoing input, falling
// back to a plain line read when stdin is not a terminal (scripts,
// piped input in tests).
func readPassphrase(prompt string) (*guard.SecretBytes, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		return guard.FromBytes(raw), nil
	}

	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			line = append(line, buf[0])
		}
		if err != nil {
			break
		}
	}
	return guard.FromBytes(line), nil
}
