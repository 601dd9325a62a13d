package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trustless-go/trustless/pkg/config"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage registered stores",
}

var storeInitCmd = &cobra.Command{
	Use:   "init NAME",
	Short: "Register a new store in the persisted configuration",
	Long: `Registers a store under NAME so it can be opened by name from any
other trustless command.

Examples:
  trustless store init personal --url local:///home/me/.trustless/personal
  trustless store init work --url bolt:///home/me/.trustless/work --client-id laptop
  trustless store init shared --url local:///home/me/.trustless/shared --remote-url local:///mnt/cloud-drive/shared`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		url, _ := cmd.Flags().GetString("url")
		clientID, _ := cmd.Flags().GetString("client-id")
		timeout, _ := cmd.Flags().GetInt("autolock-timeout")
		remoteURL, _ := cmd.Flags().GetString("remote-url")
		syncInterval, _ := cmd.Flags().GetInt("sync-interval")
		makeDefault, _ := cmd.Flags().GetBool("default")

		if url == "" {
			return fmt.Errorf("--url is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if _, exists := cfg.Stores[name]; exists {
			return fmt.Errorf("store %q is already registered", name)
		}
		if cfg.Stores == nil {
			cfg.Stores = map[string]config.StoreConfig{}
		}
		cfg.Stores[name] = config.StoreConfig{
			Name:                name,
			StoreURL:            url,
			ClientID:            clientID,
			AutolockTimeoutSecs: timeout,
			RemoteStoreURL:      remoteURL,
			SyncIntervalSecs:    syncInterval,
		}
		if makeDefault || cfg.DefaultStore == "" {
			cfg.DefaultStore = name
		}

		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("Store %q registered (%s)\n", name, url)
		return nil
	},
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if len(cfg.Stores) == 0 {
			fmt.Println("No stores registered.")
			return nil
		}
		for name, sc := range cfg.Stores {
			marker := " "
			if name == cfg.DefaultStore {
				marker = "*"
			}
			if sc.RemoteStoreURL != "" {
				fmt.Printf("%s %-20s %s (syncing with %s)\n", marker, name, sc.StoreURL, sc.RemoteStoreURL)
				continue
			}
			fmt.Printf("%s %-20s %s\n", marker, name, sc.StoreURL)
		}
		return nil
	},
}

func init() {
	storeInitCmd.Flags().String("url", "", "Block store URL (memory://, local://<path>, bolt://<path>)")
	storeInitCmd.Flags().String("client-id", "", "Client id presented during synchronization")
	storeInitCmd.Flags().Int("autolock-timeout", 0, "Autolock timeout in seconds (defaults to 300)")
	storeInitCmd.Flags().String("remote-url", "", "Optional synchronization peer URL; when set, a background synchronizer reconciles it with --url")
	storeInitCmd.Flags().Int("sync-interval", 0, "Synchronization interval in seconds (defaults to 300, ignored without --remote-url)")
	storeInitCmd.Flags().Bool("default", false, "Make this the default store")

	storeCmd.AddCommand(storeInitCmd)
	storeCmd.AddCommand(storeListCmd)
}
