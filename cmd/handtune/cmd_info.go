package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/handtune/internal/capture"
	"github.com/ayusman/handtune/internal/gesture"
	"github.com/ayusman/handtune/internal/server"
	"github.com/ayusman/handtune/internal/store"
)

var (
	manualMode string

	historyLimit int
	historyClear bool
	historyStats bool
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "List camera devices that can be opened",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices := capture.ListDevices(server.MaxCameraProbe)
		if len(devices) == 0 {
			fmt.Println("No cameras found.")
			return nil
		}
		for _, id := range devices {
			marker := " "
			if id == cfg.Camera.Device {
				marker = "*"
			}
			fmt.Printf("%s camera %d\n", marker, id)
		}
		return nil
	},
}

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Show the gesture manual",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := cfg.Mode
		if manualMode != "" {
			mode = manualMode
		}
		profile, err := gesture.ParseProfile(mode)
		if err != nil {
			return err
		}

		fmt.Printf("Gestures (%s mode)\n\n", profile)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "GESTURE\tPOSE\tHOW")
		for _, e := range gesture.Guide(profile) {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Pose, e.Description)
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently executed commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.New(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer st.Close()

		switch {
		case historyClear:
			if err := st.Events().Clear(); err != nil {
				return err
			}
			fmt.Println("History cleared.")
			return nil
		case historyStats:
			return printStats(st)
		}
		return printHistory(st, historyLimit)
	},
}

func printHistory(st *store.Store, limit int) error {
	events, err := st.Events().List(limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No commands recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCOMMAND\tGESTURE\tSINK\tRESULT")
	for _, e := range events {
		result := "ok"
		if !e.Success {
			result = "error: " + e.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Command, e.Gesture, e.Sink, result)
	}
	return w.Flush()
}

func printStats(st *store.Store) error {
	counts, err := st.Events().CountByCommand()
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Println("No commands recorded yet.")
		return nil
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMMAND\tCOUNT")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
	}
	return w.Flush()
}
