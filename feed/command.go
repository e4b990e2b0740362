package feed

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// commandSource runs an operator-provided command and reads the price
// from its stdout. The escape hatch for pairs no stock source covers.
type commandSource struct {
	command string
	log     *logrus.Logger
}

func (s *commandSource) FetchPrice(ctx context.Context) (int64, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", s.command)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return 0, fmt.Errorf("feed: command failed: %v: %s", err, strings.TrimSpace(string(ee.Stderr)))
		}
		return 0, fmt.Errorf("feed: command failed: %w", err)
	}

	text := strings.TrimSpace(string(out))
	price, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("feed: command output %q is not an integer price", text)
	}
	s.log.WithField("price", price).Debug("price fetched from command")
	return price, nil
}
