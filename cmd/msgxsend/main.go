// SPDX-FileCopyrightText: 2026 The msgx Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Descantly/tikv/pkg/exchange"
	"github.com/Descantly/tikv/pkg/msg"
)

func showHelp() {
	fmt.Printf("msgxsend <ADDRESS> <TYPE> <SEQ>\n\n")
	fmt.Printf("  sends data from stdin as a message to the given node\n\n")
	fmt.Printf("  ADDRESS  the node's exchange endpoint, e.g., 127.0.0.1:20160\n")
	fmt.Printf("  TYPE     one of raft, command, status\n")
	fmt.Printf("  SEQ      the message's sequence number\n\n")
	fmt.Printf("Examples:\n")
	fmt.Printf("  msgxsend 127.0.0.1:20160 command 1 <<< \"hello world\"\n")
}

func parseType(name string) (msg.Type, error) {
	switch name {
	case "raft":
		return msg.TypeRaft, nil
	case "command":
		return msg.TypeCommand, nil
	case "status":
		return msg.TypeStatus, nil
	default:
		return msg.TypeNone, fmt.Errorf("unknown message type %q", name)
	}
}

func send(address string, t msg.Type, seq uint64, payload []byte) error {
	client := exchange.NewClient(address, 0)
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reply, err := client.PostWait(ctx, msg.NewMessage(t, seq, payload))
	if err != nil {
		return err
	}

	if reply != nil {
		fmt.Printf("%v\n", reply)
	}

	return nil
}

func main() {
	args := os.Args[1:]

	if len(args) == 0 {
		showHelp()
		os.Exit(1)
	}

	switch args[0] {
	case "help", "--help", "-h":
		showHelp()

	default:
		if len(args) != 3 {
			fmt.Printf("Amount of parameters is wrong.\n\n")
			showHelp()
			os.Exit(1)
		}

		t, err := parseType(args[1])
		if err != nil {
			fmt.Printf("%v\n\n", err)
			showHelp()
			os.Exit(1)
		}

		seq, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Printf("Parsing SEQ failed: %v\n", err)
			os.Exit(1)
		}

		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Printf("Failed to read data from stdin: %v\n", err)
			os.Exit(1)
		}

		if err := send(args[0], t, seq, payload); err != nil {
			fmt.Printf("Sending data failed: %v\n", err)
			os.Exit(1)
		}
	}
}
