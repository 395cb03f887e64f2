package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/vectorframe/conduit/conduit"
)

var replJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// newReplCmd implements `conduit repl [addr]`: dials a running server's
// websocket endpoint and gives an operator a plain stdin/stdout console
// over the same Envelope wire protocol the core module's own connections
// use — no protocol logic lives here beyond encode/decode.
func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl [addr]",
		Short: "connect to a running conduit server and issue commands interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := "localhost:8765"
			if len(args) == 1 {
				addr = args[0]
			}
			u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}

			conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
			if err != nil {
				return fmt.Errorf("conduit repl: dial %s: %w", u.String(), err)
			}
			defer conn.Close()

			go replReader(conn)
			return replWriter(conn)
		},
	}
	return cmd
}

func replReader(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			fmt.Println("connection closed:", err)
			os.Exit(0)
		}
		fmt.Println(string(data))
	}
}

func replWriter(conn *websocket.Conn) error {
	fmt.Println("conduit repl: connect | subscribe <query> | play | pause | rewind <n> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		env, ok := replCommand(fields)
		if !ok {
			if fields[0] == "quit" {
				return nil
			}
			fmt.Println("unknown command:", fields[0])
			continue
		}
		data, err := replJSON.Marshal(env)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func replCommand(fields []string) (conduit.Envelope, bool) {
	switch fields[0] {
	case "connect":
		return conduit.Envelope{Kind: conduit.KindConnect, Payload: conduit.Connect{}}, true
	case "subscribe":
		if len(fields) != 2 {
			return conduit.Envelope{}, false
		}
		return conduit.Envelope{Kind: conduit.KindSubscribe, Payload: conduit.Subscribe{Query: fields[1]}}, true
	case "play":
		return conduit.Envelope{Kind: conduit.KindSetPlaying, Payload: conduit.SetPlaying{Playing: true}}, true
	case "pause":
		return conduit.Envelope{Kind: conduit.KindSetPlaying, Payload: conduit.SetPlaying{Playing: false}}, true
	case "rewind":
		if len(fields) != 2 {
			return conduit.Envelope{}, false
		}
		var idx int
		if _, err := fmt.Sscanf(fields[1], "%d", &idx); err != nil {
			return conduit.Envelope{}, false
		}
		return conduit.Envelope{Kind: conduit.KindRewind, Payload: conduit.Rewind{Index: idx}}, true
	default:
		return conduit.Envelope{}, false
	}
}
