package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trustless-go/trustless/pkg/vault"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage identities within a store",
}

var identityCreateCmd = &cobra.Command{
	Use:   "create ID",
	Short: "Create a new identity ring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		hidden, _ := cmd.Flags().GetBool("hidden")

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		target, err := storeName(cmd.Root().PersistentFlags(), svc)
		if err != nil {
			return err
		}
		st, err := openStore(svc, target)
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase("New identity passphrase: ")
		if err != nil {
			return err
		}
		defer passphrase.Close()

		if err := st.AddIdentity(vault.Identity{ID: id, Name: name, Email: email, Hidden: hidden}, passphrase); err != nil {
			return err
		}
		fmt.Printf("Identity %q created in store %q\n", id, target)
		return nil
	},
}

var identityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List identities in a store",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		target, err := storeName(cmd.Root().PersistentFlags(), svc)
		if err != nil {
			return err
		}
		st, err := openStore(svc, target)
		if err != nil {
			return err
		}

		identities, err := st.Identities()
		if err != nil {
			return err
		}
		for _, identity := range identities {
			fmt.Printf("%-24s %-24s %s\n", identity.ID, identity.Name, identity.Email)
		}
		return nil
	},
}

func init() {
	identityCreateCmd.Flags().String("name", "", "Display name")
	identityCreateCmd.Flags().String("email", "", "Email address")
	identityCreateCmd.Flags().Bool("hidden", false, "Hide this identity from default identity pickers")

	identityCmd.AddCommand(identityCreateCmd)
	identityCmd.AddCommand(identityListCmd)
}
