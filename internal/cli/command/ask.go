package command

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"
)

// askRequest is the frame sent to the broker.
type askRequest struct {
	APIKey      string `json:"API_KEY,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Question    string `json:"question"`
}

// brokerMessage covers both status observations and routed answers.
type brokerMessage struct {
	Status      string `json:"status"`
	TokenID     int64  `json:"token_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Message     string `json:"message,omitempty"`
	Question    string `json:"question,omitempty"`
	Answer      string `json:"answer,omitempty"`
}

// AskCommand submits a question and waits for the answer.
func AskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Submit a question and wait for the answer",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the answer",
				Value: 60 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "no-wait",
				Usage: "Print the queued status and exit without waiting",
			},
		},
		Action: runAsk,
	}
}

func runAsk(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	apiKey := c.String("api-key")
	token := c.String("token")
	if apiKey == "" && token == "" {
		return fmt.Errorf("either --api-key or --token is required")
	}

	conn, err := dial(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	req := askRequest{Question: question}
	if token != "" {
		req.AccessToken = token
	} else {
		req.APIKey = apiKey
	}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	timeout := c.Duration("timeout")
	deadline := time.Now().Add(timeout)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return err
		}
		var msg brokerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("waiting for answer: %w", err)
		}

		switch msg.Status {
		case "queued":
			fmt.Fprintf(c.App.Writer, "queued (token_id=%d access_token=%s)\n",
				msg.TokenID, msg.AccessToken)
			if c.Bool("no-wait") {
				return nil
			}
		case "answered":
			fmt.Fprintln(c.App.Writer, msg.Answer)
			return nil
		case "error":
			if msg.Message != "" {
				return fmt.Errorf("rejected: %s (%s)", msg.Reason, msg.Message)
			}
			return fmt.Errorf("rejected: %s", msg.Reason)
		default:
			fmt.Fprintf(c.App.Writer, "status: %s\n", msg.Status)
		}
	}
}

func dial(c *cli.Context) (*websocket.Conn, error) {
	scheme := "ws"
	dialer := *websocket.DefaultDialer
	if c.Bool("tls") {
		scheme = "wss"
		if c.Bool("insecure-skip-verify") {
			dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}

	url := fmt.Sprintf("%s://%s/ws", scheme, c.String("server"))
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}
