package flags

import (
	"time"

	"gopkg.in/urfave/cli.v1"
)

// NodeFlags holds knobs for the ledger node connection. The daemon never
// holds keys; the node wallet signs everything, so the API key is the one
// secret an operator deals with.

func NodeFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "node.url",
			Usage: "Base URL of the ledger node REST API",
			Value: "http://127.0.0.1:9053",
		},
		cli.StringFlag{
			Name:  "node.apikey",
			Usage: "API key for the node's wallet endpoints",
		},
		cli.DurationFlag{
			Name:  "node.timeout",
			Usage: "Per-request timeout for node calls",
			Value: 10 * time.Second,
		},
	}
}
