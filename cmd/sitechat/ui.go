// ABOUTME: Terminal renderer for controller events: replies, errors, suggestions.
// ABOUTME: Keeps the last follow-up suggestions so /f <n> can resend them.

package main

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/fatih/color"

	"github.com/sitebuilder/sitechat/internal/chat"
	"github.com/sitebuilder/sitechat/internal/syncer"
)

// ui renders chat events to the terminal. It is the thin external
// collaborator the core publishes to; no chat logic lives here.
type ui struct {
	title string

	mu        sync.Mutex
	followUps []string
}

func newUI(title string) *ui {
	return &ui{title: title}
}

// render consumes events until the channel closes.
func (u *ui) render(events <-chan *chat.Event) {
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	for ev := range events {
		switch ev.Type {
		case chat.EventMessage:
			// User messages are already echoed by the prompt.
			if ev.Message != nil && !ev.Message.IsUser {
				green.Printf("%s> ", u.title)
				fmt.Println(ev.Message.Content)
			}

		case chat.EventTyping:
			if ev.Typing {
				gray.Printf("%s is typing...\n", u.title)
			}

		case chat.EventError:
			if ev.Err == nil {
				continue
			}
			red.Printf("[%s] %s\n", ev.Err.Kind, ev.Err.Message)
			if ev.Err.Retryable {
				gray.Println("Use /retry to try again.")
			}

		case chat.EventFollowUps:
			u.mu.Lock()
			u.followUps = ev.FollowUps
			u.mu.Unlock()
			if len(ev.FollowUps) > 0 {
				yellow.Println("Suggestions:")
				for i, s := range ev.FollowUps {
					fmt.Printf("  %d. %s\n", i+1, s)
				}
				gray.Println("Send one with /f <n>.")
			}

		case chat.EventSyncStatus:
			if ev.Status == syncer.StatusOffline {
				yellow.Println("[sync] backend unreachable, history saved locally")
			}

		case chat.EventConversation:
			// History reprints are handled by the command loop.
		}
	}
}

// followUp resolves a 1-based suggestion index to its text, or "".
func (u *ui) followUp(arg string) string {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return ""
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if n < 1 || n > len(u.followUps) {
		return ""
	}
	return u.followUps[n-1]
}
