package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hm-skb/skb/internal/client/sync"
	"github.com/hm-skb/skb/internal/skbsdk"
)

const defaultDiscoverDepth = 1

func init() {
	rootCmd.AddCommand(newServerCmd())
}

func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage the servers your backups are replicated to",
	}

	cmd.AddCommand(
		newServerListCmd(),
		newServerDiscoverCmd(),
		newServerVerifyCmd(),
		newServerNewCmd(),
		newServerDeleteCmd(),
	)
	return cmd
}

func newServerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List added servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			servers, err := c.servers.List(cmd.Context())
			if err != nil {
				return err
			}

			for _, srv := range servers {
				printServer(cmd.OutOrStdout(), srv)
			}
			return nil
		},
	}
}

func newServerDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover [depth]",
		Short: "Discover servers that can be added",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			depth := uint64(defaultDiscoverDepth)
			if len(args) == 1 {
				var err error
				if depth, err = strconv.ParseUint(args[0], 10, 8); err != nil {
					return fmt.Errorf("invalid depth %q: %w", args[0], err)
				}
			}

			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			items, err := c.servers.Discover(cmd.Context(), uint(depth))
			if err != nil {
				return err
			}

			for _, item := range items {
				printServerItem(cmd.OutOrStdout(), item)
			}
			return nil
		},
	}
}

func newServerVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <hostname>",
		Short: "Confirm a server that added you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			res, err := c.servers.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if res.Existing {
				fmt.Fprintln(w, "Server is already confirmed")
				return nil
			}
			fmt.Fprintf(w, "Confirmed server %s. Here is the backup code, write it down somewhere:\n", res.Hostname)
			fmt.Fprintln(w, bold.Render(res.BackupCode))
			return nil
		},
	}
}

func newServerNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <hostname>",
		Short: "Add a discovered server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			res, err := c.servers.New(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if res.Existing {
				fmt.Fprintln(w, "Server is already added")
				return nil
			}
			fmt.Fprintf(w, "Added new server %s. Here is the backup code, write it down somewhere:\n", res.Hostname)
			fmt.Fprintln(w, bold.Render(res.BackupCode))
			return nil
		},
	}
}

func newServerDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <hostname>",
		Short: "Remove a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			if err := c.servers.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted server %s\n", args[0])
			return nil
		},
	}
}

func printServer(w io.Writer, srv sync.ServerListing) {
	oldHostnames := "None"
	if len(srv.OldHostnames) > 0 {
		oldHostnames = strings.Join(srv.OldHostnames, ", ")
	}

	state := green.Render("Connected")
	switch srv.State {
	case skbsdk.ServerAwaitingRemoteConfirmation:
		state = yellow.Render("Waiting for remote server to verify")
	case skbsdk.ServerAwaitingLocalConfirmation:
		state = yellow.Render("Waiting for you to verify")
	}

	fmt.Fprintln(w, cyan.Render(srv.Hostname))
	fmt.Fprintf(w, "\tOwner:                %s\n", srv.Owner)
	fmt.Fprintf(w, "\tOld hostnames:        %s\n", oldHostnames)
	fmt.Fprintf(w, "\tBlock size:           %s\n", bytesOf(srv.BlockSize))
	fmt.Fprintf(w, "\tFree blocks:          %d (%s)\n", srv.FreeBlocks, bytesOf(srv.BlockSize*srv.FreeBlocks))
	fmt.Fprintf(w, "\tUsed blocks:          %d (%s)\n", srv.UsedBlocks, bytesOf(srv.BlockSize*srv.UsedBlocks))
	fmt.Fprintf(w, "\tHealthcheck:          %d%% every %d minutes\n", srv.HealthcheckPercent, srv.HealthcheckInterval)
	fmt.Fprintf(w, "\tState:                %s\n", state)
	fmt.Fprintf(w, "\tHealthy:              %t\n", srv.Healthy)
}

func printServerItem(w io.Writer, item skbsdk.ServerItem) {
	hashMethods := "None"
	if len(item.HashMethods) > 0 {
		hashMethods = strings.Join(item.HashMethods, ", ")
	}

	fmt.Fprintln(w, cyan.Render(item.Hostname))
	fmt.Fprintf(w, "\tOwner:        %s\n", item.Owner)
	fmt.Fprintf(w, "\tBlock size:   %s\n", bytesOf(item.BlockSize))
	fmt.Fprintf(w, "\tFree blocks:  %d (%s)\n", item.FreeBlocks, bytesOf(item.BlockSize*item.FreeBlocks))
	fmt.Fprintf(w, "\tHealthcheck:  %d%% every %d minutes\n", item.HealthcheckPercent, item.HealthcheckInterval)
	fmt.Fprintf(w, "\tHash methods: %s\n", hashMethods)
}
