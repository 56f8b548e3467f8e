// chatline CLI - a minimal terminal client for the chatline server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chatline-im/chatline/clients/go/chatline"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CHATLINE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}

	email, name := os.Args[1], os.Args[2]
	var peer string
	if len(os.Args) > 3 {
		peer = os.Args[3]
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := chatline.NewClient(baseURL)
	exitOnError(client.Connect(ctx))
	defer client.Close()

	exitOnError(client.Login(email, name, ""))
	if peer != "" {
		exitOnError(client.RequestHistory(email, peer))
	}

	go func() {
		err := client.Listen(ctx, chatline.Handlers{
			OnOnlineUsers: func(users []chatline.User) {
				names := make([]string, len(users))
				for i, u := range users {
					names[i] = u.Name
				}
				fmt.Printf("-- online: %s\n", strings.Join(names, ", "))
			},
			OnMessage: func(msg chatline.Message) {
				sender := msg.From
				if msg.User != nil && msg.User.Name != "" {
					sender = msg.User.Name
				}
				if msg.Kind == "image" {
					fmt.Printf("[%s] <image>\n", sender)
					return
				}
				fmt.Printf("[%s] %s\n", sender, msg.Text)
			},
			OnTyping: func(ev chatline.TypingEvent) {
				if ev.Typing {
					fmt.Printf("-- %s is typing...\n", ev.From)
				}
			},
			OnMessageRead: func(id string) {
				fmt.Printf("-- message %s read\n", id)
			},
			OnHistory: func(msgs []chatline.Message) {
				for _, m := range msgs {
					fmt.Printf("[%s] %s\n", m.From, m.Text)
				}
			},
		})
		if err != nil && ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, "connection lost:", err)
			os.Exit(1)
		}
	}()

	if peer == "" {
		fmt.Println("watching (no peer given); ctrl-c to quit")
		<-ctx.Done()
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" {
			return
		}
		exitOnError(client.SendText(email, peer, text))
	}
}

func usage() {
	fmt.Println(`chatline - terminal chat client

Usage: chatline <email> <name> [peer-email]

Environment:
  CHATLINE_URL   server base URL (default http://localhost:5000)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
