package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kuldeep921997/peerline/internal/ui"
	"github.com/kuldeep921997/peerline/internal/version"
)

var (
	flagServer   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "peerline",
	Short:   "Peer-to-peer calls and chat over WebRTC",
	Long:    `Peerline connects participants directly over WebRTC for audio, video, screen sharing and chat. A lightweight rendezvous service only brokers room membership and relays the session handshake; all media and messages flow peer to peer.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "S", "", "Rendezvous server websocket URL")
	rootCmd.PersistentFlags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	rootCmd.PersistentFlags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	rootCmd.PersistentFlags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	rootCmd.PersistentFlags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
}
