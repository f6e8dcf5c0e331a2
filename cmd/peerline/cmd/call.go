package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/kuldeep921997/peerline/internal/chat"
	"github.com/kuldeep921997/peerline/internal/config"
	"github.com/kuldeep921997/peerline/internal/media"
	"github.com/kuldeep921997/peerline/internal/rendezvous"
	"github.com/kuldeep921997/peerline/internal/session"
	"github.com/kuldeep921997/peerline/internal/ui"
)

const welcomeTimeout = 10 * time.Second

// ConnectionContext bundles everything a command needs after the
// rendezvous handshake: the live connection, its message router, and the
// id the service assigned us.
type ConnectionContext struct {
	Client  *rendezvous.Client
	Handler *rendezvous.Handler
	Config  *config.Config
	LocalID string
}

func NewConnectionContext(cfg *config.Config) (*ConnectionContext, error) {
	client := rendezvous.NewClient(cfg.ServerURL)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect to server: %w", err)
	}

	handler := rendezvous.NewHandler(client)
	go handler.Start()

	select {
	case id := <-handler.Welcome:
		return &ConnectionContext{Client: client, Handler: handler, Config: cfg, LocalID: id}, nil
	case <-handler.Disconnected:
		return nil, fmt.Errorf("connection dropped before welcome")
	case <-time.After(welcomeTimeout):
		client.Close()
		return nil, fmt.Errorf("no welcome from server")
	}
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{
		ServerURL:  flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
	})
}

// runCall is the interactive loop shared by host and join. It bridges
// service events into the coordinator, prints session and chat activity,
// and reads commands from stdin until interrupt or disconnect.
func runCall(ctx *ConnectionContext, withAudio, withVideo bool) error {
	coord := session.New(ctx.LocalID, ctx.Config, ctx.Client, media.NewSampleSource(), nil)
	defer coord.Leave()

	if withAudio {
		if err := coord.AddLocalMedia(context.Background(), media.KindAudio); err != nil {
			ui.PrintWarning(media.Actionable(err))
		}
	}
	if withVideo {
		if err := coord.AddLocalMedia(context.Background(), media.KindVideo); err != nil {
			ui.PrintWarning(media.Actionable(err))
		}
	}

	fmt.Println()
	ui.PrintInfof("You are %s. Type a message, or /help for commands.", ui.PeerStyle.Render(ctx.LocalID))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	muted := false
	for {
		select {
		case ev := <-ctx.Handler.UserJoined:
			ui.PrintPeerEvent(ui.IconPeer, ev.UserID, fmt.Sprintf("joined (%d in room)", ev.Count))
			if err := coord.HandleUserJoined(ev.UserID); err != nil {
				ui.PrintErrorf("start session with %s: %v", ev.UserID, err)
			}

		case ev := <-ctx.Handler.UserLeft:
			ui.PrintPeerEvent(ui.IconWave, ev.UserID, fmt.Sprintf("left (%d in room)", ev.Count))
			coord.HandleUserLeft(ev.UserID)

		case msg := <-ctx.Handler.Signal:
			if err := coord.HandleSignal(msg); err != nil {
				ui.PrintErrorf("session with %s: %v", msg.SenderID, err)
			}

		case st := <-coord.States():
			printState(st)

		case ev := <-coord.Chats():
			printFrame(coord, ev)

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			done, err := handleLine(coord, line, &muted)
			if err != nil {
				ui.PrintError(err.Error())
			}
			if done {
				return nil
			}

		case <-ctx.Handler.Disconnected:
			return fmt.Errorf("lost connection to server")

		case <-interrupt:
			fmt.Println()
			ui.PrintInfo("Leaving...")
			return nil
		}
	}
}

func printState(st session.StateChange) {
	switch st.State {
	case session.StateConnected:
		ui.PrintPeerEvent(ui.IconConnect, st.Peer, "connected")
	case session.StateFailed:
		reason := "connection failed"
		if st.Err != nil {
			reason = st.Err.Error()
		}
		ui.PrintPeerEvent(ui.IconError, st.Peer, reason+" (use /retry "+st.Peer+")")
	case session.StateClosed:
		ui.PrintPeerEvent(ui.IconWave, st.Peer, "session closed")
	default:
		ui.PrintPeerEvent(ui.IconWaiting, st.Peer, st.State.String())
	}
}

func printFrame(coord *session.Coordinator, ev session.ChatEvent) {
	switch ev.Frame.Kind {
	case chat.KindText:
		ui.PrintChat(ev.Peer, ev.Frame.Body)
	case chat.KindMute:
		if ev.Frame.Muted {
			ui.PrintPeerEvent(ui.IconMic, ev.Peer, "muted")
		} else {
			ui.PrintPeerEvent(ui.IconMic, ev.Peer, "unmuted")
		}
	case chat.KindBye:
		ui.PrintPeerEvent(ui.IconWave, ev.Peer, "hung up")
		coord.HandleUserLeft(ev.Peer)
	}
}

func handleLine(coord *session.Coordinator, line string, muted *bool) (done bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		coord.SendChat(line)
		return false, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		printHelp()

	case "/peers":
		rows := make([]ui.ParticipantRow, 0)
		for i, id := range coord.Peers() {
			st, _ := coord.ConnectionState(id)
			rows = append(rows, ui.ParticipantRow{Index: i + 1, ID: id, Note: st.String()})
		}
		ui.RenderParticipantTable(rows)

	case "/mute":
		*muted = true
		coord.SetMuted(true)
		ui.PrintInfo("Microphone muted")

	case "/unmute":
		*muted = false
		coord.SetMuted(false)
		ui.PrintInfo("Microphone live")

	case "/audio":
		if err := coord.AddLocalMedia(context.Background(), media.KindAudio); err != nil {
			return false, fmt.Errorf("%s", media.Actionable(err))
		}
		ui.PrintSuccess("Audio enabled")

	case "/video":
		if err := coord.AddLocalMedia(context.Background(), media.KindVideo); err != nil {
			return false, fmt.Errorf("%s", media.Actionable(err))
		}
		ui.PrintSuccess("Video enabled")

	case "/share":
		if err := coord.ShareDisplay(context.Background()); err != nil {
			return false, fmt.Errorf("%s", media.Actionable(err))
		}
		ui.PrintSuccess("Screen sharing started")

	case "/retry":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /retry <peer>")
		}
		if err := coord.Initiate(fields[1]); err != nil {
			return false, err
		}

	case "/hangup":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /hangup <peer>")
		}
		if err := coord.Hangup(fields[1]); err != nil {
			return false, err
		}

	case "/quit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
	return false, nil
}

func printHelp() {
	fmt.Println(ui.BoxStyle.Render(strings.Join([]string{
		ui.BoldStyle.Render("Commands"),
		"/peers           list sessions",
		"/audio /video    enable a local track",
		"/share           share the screen",
		"/mute /unmute    toggle the microphone",
		"/retry <peer>    reconnect after a failure",
		"/hangup <peer>   end one session",
		"/quit            leave the room",
		"anything else    send as chat",
	}, "\n")))
}
