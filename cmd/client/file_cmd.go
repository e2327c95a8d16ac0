package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hm-skb/skb/internal/client/sync"
	"github.com/hm-skb/skb/internal/utils"
)

func init() {
	rootCmd.AddCommand(newFileCmd())
}

func newFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Back up, restore and sync files",
	}

	cmd.AddCommand(
		newFileListCmd(),
		newFileAddCmd(),
		newFileUpdateCmd(),
		newFileDownloadCmd(),
		newFileDeleteCmd(),
		newFileSyncCmd(),
	)
	return cmd
}

func newFileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved files and how they compare to the local copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			listings, err := c.engine.List(cmd.Context())
			if err != nil {
				return err
			}

			printListings(cmd.OutOrStdout(), listings)
			return nil
		},
	}
}

func newFileAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>",
		Short: "Save a new file on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := utils.ExpandHome(args[0])
			if err != nil {
				return err
			}

			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			res, err := c.engine.Add(cmd.Context(), path)
			if err != nil {
				printHint(cmd.ErrOrStderr(), err)
				return err
			}

			printResult(cmd.OutOrStdout(), sync.DirAdd, res)
			return nil
		},
	}
}

func newFileUpdateCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "update <file>",
		Short: "Upload the local version of a saved file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := utils.ExpandHome(args[0])
			if err != nil {
				return err
			}

			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			res, err := c.engine.Update(cmd.Context(), path, force)
			if err != nil {
				printHint(cmd.ErrOrStderr(), err)
				return err
			}

			printResult(cmd.OutOrStdout(), sync.DirUpdate, res)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Upload even if the server version is newer")
	return cmd
}

func newFileDownloadCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "download <file>",
		Short: "Replace the local file with the server version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := utils.ExpandHome(args[0])
			if err != nil {
				return err
			}

			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			res, err := c.engine.Download(cmd.Context(), path, force)
			if err != nil {
				printHint(cmd.ErrOrStderr(), err)
				return err
			}

			printResult(cmd.OutOrStdout(), sync.DirDownload, res)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Download even if the local version is newer")
	return cmd
}

func newFileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file>",
		Short: "Delete the server copy of a file, the local file is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := utils.ExpandHome(args[0])
			if err != nil {
				return err
			}

			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			res, err := c.engine.Delete(cmd.Context(), path)
			if err != nil {
				printHint(cmd.ErrOrStderr(), err)
				return err
			}

			printResult(cmd.OutOrStdout(), sync.DirDelete, res)
			return nil
		},
	}
}

func newFileSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync every saved file with the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			lock := sync.NewSweepLock(c.cfg.StateDir)
			if err := lock.Lock(); err != nil {
				return err
			}
			defer lock.Unlock()

			report, err := c.engine.SyncAll(cmd.Context())
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
}

func printListings(w io.Writer, listings []sync.FileListing) {
	for _, l := range listings {
		fmt.Fprintf(w, "%s: %s\n", statusStyle(l.Status).Render(string(l.Status)), l.Path)
	}
}

func printResult(w io.Writer, dir sync.Direction, res *sync.OpResult) {
	if res.Verdict == sync.VerdictUpToDate {
		fmt.Fprintf(w, "%s %s\n", green.Render("File is already up to date:"), res.Path)
		return
	}

	var msg string
	switch dir {
	case sync.DirAdd:
		msg = "File saved on server:"
	case sync.DirUpdate:
		msg = "Server file updated with local version:"
	case sync.DirDownload:
		msg = "Local file updated with server version:"
	case sync.DirDelete:
		msg = "File deleted on server:"
	}
	fmt.Fprintf(w, "%s %s %s\n", green.Render(msg), res.Path, gray.Render(bytesOf(uint64(res.Size))))
}

func printReport(w io.Writer, report *sync.SyncReport) {
	for _, res := range report.Results {
		var label string
		switch res.Verdict {
		case sync.VerdictUploadNeeded:
			label = cyan.Render("uploaded  ")
		case sync.VerdictDownloadNeeded:
			label = cyan.Render("downloaded")
		default:
			label = gray.Render("up to date")
		}
		fmt.Fprintf(w, "%s %s\n", label, res.Path)
	}

	fmt.Fprintf(w, "%d uploaded, %d downloaded, %d up to date, %s transferred\n",
		report.Uploaded, report.Downloaded, report.UpToDate, bytesOf(uint64(report.Bytes)))
}

// printHint tells the user how to get past a refused operation.
func printHint(w io.Writer, err error) {
	switch {
	case errors.Is(err, sync.ErrServerVersionNewer):
		fmt.Fprintln(w, yellow.Render("Server file is newer. Force update with -f flag"))
	case errors.Is(err, sync.ErrLocalVersionNewer):
		fmt.Fprintln(w, yellow.Render("Local file is newer. Force download with -f flag"))
	case errors.Is(err, sync.ErrNotTrackedRemotely):
		fmt.Fprintln(w, yellow.Render("File is not saved on the server. Add it with skb file add"))
	case errors.Is(err, sync.ErrAlreadyTracked):
		fmt.Fprintln(w, yellow.Render("File is already saved. Use skb file update to upload changes"))
	}
}
