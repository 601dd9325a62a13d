package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock IDENTITY",
	Short: "Unlock a store as the given identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identityID := args[0]
		timeoutSecs, _ := cmd.Flags().GetInt("timeout")

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

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		defer passphrase.Close()

		timeout := time.Duration(timeoutSecs) * time.Second
		if sc, ok := svc.StoreConfig(target); ok && timeoutSecs == 0 {
			timeout = sc.AutolockTimeout()
		}

		if err := st.Unlock(identityID, passphrase, timeout); err != nil {
			return err
		}
		if err := st.UpdateIndex(); err != nil {
			return err
		}
		fmt.Printf("Store %q unlocked as %q\n", target, identityID)
		return nil
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock a store",
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
		if err := st.Lock(); err != nil {
			return err
		}
		fmt.Printf("Store %q locked\n", target)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a store is locked or unlocked",
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

		status := st.Status()
		if status.Locked {
			fmt.Printf("%s: locked\n", target)
			return nil
		}
		fmt.Printf("%s: unlocked by %s, autolocks at %s\n", target, status.UnlockedBy.ID, status.AutolockAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	unlockCmd.Flags().Int("timeout", 0, "Autolock timeout in seconds (defaults to the store's configured timeout)")
}
