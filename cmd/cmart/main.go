package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	cl "clickmart/internal/cli"
	"clickmart/internal/config"
	"clickmart/internal/game"
	"clickmart/internal/predictor"
	"clickmart/internal/syncq"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "cmart",
		Short:        "ClickMart CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newStateCmd(&apiBase),
		newClickCmd(&apiBase),
		newBuyCmd(&apiBase),
		newUpgradeCmd(&apiBase),
		newTickCmd(&apiBase),
		newResetCmd(&apiBase),
		newSyncCmd(&apiBase),
		newPlayCmd(&apiBase),
		newWatchCmd(&apiBase),
		newLogoutCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newClient restores the saved session when there is one; otherwise the
// server mints a session on first contact and we persist it afterwards.
func newClient(apiBase *string) *cl.Client {
	base := strings.TrimRight(strings.TrimSpace(*apiBase), "/")
	sessionID := ""
	if sess, err := cl.LoadSession(); err == nil {
		sessionID = sess.SessionID
		if sess.APIBaseURL != "" {
			base = sess.APIBaseURL
		}
	}
	return cl.NewClient(base, sessionID)
}

func persistSession(c *cl.Client) {
	if c.SessionID == "" {
		return
	}
	_ = cl.SaveSession(cl.Session{SessionID: c.SessionID, APIBaseURL: c.BaseURL})
}

func newStateCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the current game state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.State(ctx)
			if err != nil {
				return err
			}
			persistSession(client)
			renderState(out)
			return nil
		},
	}
}

// submit sends one action, queueing it locally when the API is unreachable so
// a later `cmart sync` can replay it.
func submit(cmd *cobra.Command, apiBase *string, action cl.WireAction) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	client := newClient(apiBase)
	out, err := client.Actions(ctx, []cl.WireAction{action})
	if err != nil {
		if qErr := syncq.Push(action); qErr != nil {
			return qErr
		}
		printWarn(fmt.Sprintf("API unreachable (%v); action queued for `cmart sync`", err))
		return nil
	}
	persistSession(client)
	renderRejections(out.Rejected)
	renderState(out)
	return nil
}

func newClickCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "click [count]",
		Short: "Generate visitors by clicking",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid count %q", args[0])
				}
				count = n
			}
			return submit(cmd, apiBase, cl.WireAction{
				ID:    uuid.NewString(),
				Type:  "click",
				Count: count,
			})
		},
	}
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <building-id>",
		Short: "Buy one unit of a building",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd, apiBase, cl.WireAction{
				ID:     uuid.NewString(),
				Type:   "buy_building",
				ItemID: args[0],
			})
		},
	}
}

func newUpgradeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade <vertical-id>",
		Short: "Unlock or level up a vertical",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd, apiBase, cl.WireAction{
				ID:     uuid.NewString(),
				Type:   "upgrade_vertical",
				ItemID: args[0],
			})
		},
	}
}

func newTickCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tick [elapsed-ms]",
		Short: "Submit elapsed time for passive production",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			elapsed := int64(1000)
			if len(args) == 1 {
				n, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid elapsed %q", args[0])
				}
				elapsed = n
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Tick(ctx, elapsed)
			if err != nil {
				return err
			}
			persistSession(client)
			renderState(out)
			return nil
		},
	}
}

func newResetCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the session to a fresh game",
		RunE: func(cmd *cobra.Command, args []string) error {
			choice, err := promptChoice("Really reset all progress?", []string{"y", "n"}, "n")
			if err != nil {
				return err
			}
			if choice != "y" {
				printInfo("Reset cancelled.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Reset(ctx)
			if err != nil {
				return err
			}
			persistSession(client)
			printSuccess("Game reset.")
			renderState(out)
			return nil
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			client := newClient(apiBase)

			out, err := client.Actions(ctx, queue)
			if err != nil {
				printError(fmt.Sprintf("Sync failed: %v", err))
				return nil
			}
			persistSession(client)
			if err := syncq.Clear(); err != nil {
				return err
			}
			renderRejections(out.Rejected)
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d rejected=%d", len(queue), len(out.Rejected)))
			renderState(out)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Session cleared. The next command starts a fresh game.")
			return nil
		},
	}
}

func newPlayCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Interactive session with instant local prediction",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := newClient(apiBase)
			boot, err := client.State(ctx)
			if err != nil {
				return err
			}
			persistSession(client)
			if boot.Rules == nil {
				return fmt.Errorf("server did not return a rules snapshot")
			}

			// The mirror engine runs the server's own rules, so predictions
			// and authoritative results only diverge when another device
			// plays the same session.
			mirror := game.NewEngine(
				game.NewCatalog(boot.Rules.Buildings, boot.Rules.Verticals),
				boot.Rules.Formulas,
			)
			pred := predictor.New(mirror, func(ctx context.Context, batch []game.BatchAction) (predictor.SyncResult, error) {
				wire := make([]cl.WireAction, len(batch))
				for i, ba := range batch {
					wire[i] = toWire(ba)
				}
				out, err := client.Actions(ctx, wire)
				if err != nil {
					return predictor.SyncResult{}, err
				}
				return predictor.SyncResult{State: out.State, Rejected: out.Rejected}, nil
			}, 300*time.Millisecond)
			pred.Seed(boot.State)

			tickEvery := time.Duration(boot.Rules.Formulas.TickIntervalMs) * time.Millisecond
			stopTicks := make(chan struct{})
			go func() {
				ticker := time.NewTicker(tickEvery)
				defer ticker.Stop()
				for {
					select {
					case <-stopTicks:
						return
					case <-ticker.C:
						out, err := client.Tick(ctx, tickEvery.Milliseconds())
						if err != nil {
							continue
						}
						pred.Reconcile(out.State)
					}
				}
			}()
			defer close(stopTicks)

			printInfo("Commands: c [n] click, b <id> buy, u <id> upgrade, s show, q quit")
			for {
				line, err := promptRequired("cmart")
				if err != nil {
					return err
				}
				fields := strings.Fields(line)
				switch fields[0] {
				case "q", "quit":
					if err := pred.Flush(ctx); err != nil {
						printWarn(fmt.Sprintf("final sync failed, actions stay queued: %v", err))
					}
					return nil
				case "s", "show":
					st := pred.State()
					renderState(cl.StateResponse{State: st, Derived: mirror.Derive(st)})
				case "c", "click":
					count := 1
					if len(fields) > 1 {
						if n, err := strconv.Atoi(fields[1]); err == nil {
							count = n
						}
					}
					st, err := pred.Do(game.Click{Count: game.ClampClickCount(count)})
					if err != nil {
						printWarn(err.Error())
						continue
					}
					fmt.Printf("visitors %d, money %s\n", st.TotalVisitors, formatMoney(st.Money))
				case "b", "buy":
					if len(fields) < 2 {
						printWarn("usage: b <building-id>")
						continue
					}
					st, err := pred.Do(game.BuyBuilding{ID: fields[1]})
					if err != nil {
						printWarn(err.Error())
						continue
					}
					printSuccess(fmt.Sprintf("bought %s, money %s", fields[1], formatMoney(st.Money)))
				case "u", "upgrade":
					if len(fields) < 2 {
						printWarn("usage: u <vertical-id>")
						continue
					}
					st, err := pred.Do(game.UpgradeVertical{ID: fields[1]})
					if err != nil {
						printWarn(err.Error())
						continue
					}
					printSuccess(fmt.Sprintf("upgraded %s, money %s", fields[1], formatMoney(st.Money)))
				default:
					printWarn("unknown command")
				}
			}
		},
	}
}

func toWire(ba game.BatchAction) cl.WireAction {
	w := cl.WireAction{ID: ba.ID}
	switch a := ba.Action.(type) {
	case game.Click:
		w.Type = "click"
		w.Count = a.Count
	case game.BuyBuilding:
		w.Type = "buy_building"
		w.ItemID = a.ID
	case game.UpgradeVertical:
		w.Type = "upgrade_vertical"
		w.ItemID = a.ID
	}
	return w
}

func newWatchCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream authoritative state updates over websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("no session yet, run `cmart state` first: %w", err)
			}

			wsURL, err := toWebsocketURL(*apiBase)
			if err != nil {
				return err
			}
			header := map[string][]string{"X-Session-ID": {sess.SessionID}}
			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), wsURL, header)
			if err != nil {
				return err
			}
			defer conn.Close()

			printInfo("Watching session " + sess.SessionID + " (ctrl-c to stop)")
			for {
				var out cl.StateResponse
				if err := conn.ReadJSON(&out); err != nil {
					return nil
				}
				fmt.Printf("[%s] money %s, visitors %d, sales %.2f\n",
					time.Now().Format("15:04:05"),
					formatMoney(out.State.Money), out.State.TotalVisitors, out.State.TotalSales)
				renderRejections(out.Rejected)
			}
		},
	}
}

func toWebsocketURL(apiBase string) (string, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(apiBase), "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/v1/ws"
	return u.String(), nil
}
