package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trustless-go/trustless/pkg/store"
	"github.com/trustless-go/trustless/pkg/vault"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage secrets in an unlocked store",
}

var secretAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a new secret version",
	Long: `Adds a new secret version. Properties are given as repeated
key=value pairs via --property; tags and urls may also repeat.

Example:
  trustless secret add "Example login" --type login \
    --property username=alice --property password=hunter2 \
    --tag work --url https://example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		secretType, _ := cmd.Flags().GetString("type")
		tags, _ := cmd.Flags().GetStringArray("tag")
		urls, _ := cmd.Flags().GetStringArray("url")
		props, _ := cmd.Flags().GetStringArray("property")
		recipients, _ := cmd.Flags().GetStringArray("recipient")
		secretID, _ := cmd.Flags().GetString("secret-id")

		properties := make(map[string]string, len(props))
		for _, kv := range props {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("--property %q is not in key=value form", kv)
			}
			properties[k] = v
		}

		st, closer, err := openUnlockedStore(cmd)
		if err != nil {
			return err
		}
		defer closer()

		version := vault.SecretVersion{
			SecretID:   secretID,
			Type:       vault.SecretType(secretType),
			Name:       name,
			Tags:       tags,
			URLs:       urls,
			Properties: properties,
			Recipients: recipients,
		}
		if err := st.Add(version); err != nil {
			return err
		}
		fmt.Printf("Secret %q added\n", name)
		return nil
	},
}

var secretGetCmd = &cobra.Command{
	Use:   "get SECRET_ID",
	Short: "Show a secret's current version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secretID := args[0]
		showProps, _ := cmd.Flags().GetBool("show-properties")

		st, closer, err := openUnlockedStore(cmd)
		if err != nil {
			return err
		}
		defer closer()

		secretOut, err := st.Get(secretID, nil)
		if err != nil {
			return err
		}
		fmt.Printf("Name:      %s\n", secretOut.Current.Name)
		fmt.Printf("Type:      %s\n", secretOut.Current.Type)
		fmt.Printf("Tags:      %s\n", strings.Join(secretOut.Current.Tags, ", "))
		fmt.Printf("URLs:      %s\n", strings.Join(secretOut.Current.URLs, ", "))
		fmt.Printf("Versions:  %d\n", len(secretOut.Versions))
		if showProps {
			for k, v := range secretOut.Current.Properties {
				fmt.Printf("  %s: %s\n", k, v)
			}
		}
		return nil
	},
}

var secretListCmd = &cobra.Command{
	Use:   "list",
	Short: "List secrets, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		deleted, _ := cmd.Flags().GetBool("deleted")
		typeFlag, _ := cmd.Flags().GetString("type")
		tagFlag, _ := cmd.Flags().GetString("tag")
		nameFlag, _ := cmd.Flags().GetString("name")

		st, closer, err := openUnlockedStore(cmd)
		if err != nil {
			return err
		}
		defer closer()

		if err := st.UpdateIndex(); err != nil {
			return err
		}

		filter := vault.SecretListFilter{Deleted: deleted}
		if typeFlag != "" {
			t := vault.SecretType(typeFlag)
			filter.Type = &t
		}
		if tagFlag != "" {
			filter.Tag = &tagFlag
		}
		if nameFlag != "" {
			filter.Name = &nameFlag
		}

		list, err := listSecrets(st, filter)
		if err != nil {
			return err
		}
		for _, m := range list.Entries {
			fmt.Printf("%-36s %-30s %s\n", m.Entry.ID, m.Entry.Name, strings.Join(m.Entry.Tags, ","))
		}
		return nil
	},
}

// listSecrets exists so secretListCmd.RunE stays small; it goes through
// SecretsStore.List, which reads the index the store already loaded.
func listSecrets(st *store.SecretsStore, filter vault.SecretListFilter) (vault.SecretList, error) {
	return st.List(filter)
}

func init() {
	secretCmd.PersistentFlags().String("identity", "", "Identity to unlock the store as for this command")

	secretAddCmd.Flags().String("type", string(vault.SecretTypeNote), "Secret type (login, note, licence, wlan, password, other)")
	secretAddCmd.Flags().StringArray("tag", nil, "Tag (repeatable)")
	secretAddCmd.Flags().StringArray("url", nil, "URL (repeatable)")
	secretAddCmd.Flags().StringArray("property", nil, "key=value property (repeatable)")
	secretAddCmd.Flags().StringArray("recipient", nil, "Additional recipient identity id (repeatable)")
	secretAddCmd.Flags().String("secret-id", "", "Secret id to add a new version to (omit to create a new secret)")

	secretGetCmd.Flags().Bool("show-properties", false, "Print property values, including secrets")

	secretListCmd.Flags().Bool("deleted", false, "List deleted secrets instead of active ones")
	secretListCmd.Flags().String("type", "", "Filter by secret type")
	secretListCmd.Flags().String("tag", "", "Filter by tag")
	secretListCmd.Flags().String("name", "", "Fuzzy-match on name")

	secretCmd.AddCommand(secretAddCmd)
	secretCmd.AddCommand(secretGetCmd)
	secretCmd.AddCommand(secretListCmd)
}

// openUnlockedStore opens the target store and, when --identity is set,
// unlocks it as that identity with a passphrase read from the terminal.
// Without --identity the store is left as opened, and store calls that
// need it unlocked return KindLocked.
func openUnlockedStore(cmd *cobra.Command) (*store.SecretsStore, func(), error) {
	svc, err := newService()
	if err != nil {
		return nil, nil, err
	}

	target, err := storeName(cmd.Root().PersistentFlags(), svc)
	if err != nil {
		svc.Close()
		return nil, nil, err
	}
	st, err := openStore(svc, target)
	if err != nil {
		svc.Close()
		return nil, nil, err
	}
	if identityID, _ := cmd.Flags().GetString("identity"); identityID != "" {
		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			svc.Close()
			return nil, nil, err
		}
		sc, _ := svc.StoreConfig(target)
		err = st.Unlock(identityID, passphrase, sc.AutolockTimeout())
		passphrase.Close()
		if err != nil {
			svc.Close()
			return nil, nil, err
		}
	}
	return st, svc.Close, nil
}
