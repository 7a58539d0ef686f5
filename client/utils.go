package client

import (
	"bufio"
	"context"
	"io"
	"time"
)

// SubscribeToFileInput streams lines from r. With follow set it keeps polling
// after EOF, like tail -f; otherwise the lines channel is closed at EOF.
func SubscribeToFileInput(ctx context.Context, r io.Reader, follow bool) (chan string, chan error) {
	reader := bufio.NewReader(r)
	lines := make(chan string)
	errChan := make(chan error, 1)
	go func() {
		defer close(lines)
		for {
			line := make([]byte, 0)
			endOfLine := false
			for !endOfLine {
				partOfLine, isPrefix, err := reader.ReadLine()
				if err != nil && err != io.EOF {
					errChan <- err
					return
				}

				endOfLine = !isPrefix

				if len(partOfLine) != 0 {
					line = append(line, partOfLine...)
				}

				if err == io.EOF {
					if !follow {
						if len(line) != 0 {
							send(ctx, lines, string(line))
						}
						return
					}
					select {
					case <-ctx.Done():
						return
					case <-time.After(time.Second):
					}
				}
			}

			if len(line) != 0 && !send(ctx, lines, string(line)) {
				return
			}
		}
	}()

	return lines, errChan
}

func send(ctx context.Context, lines chan<- string, line string) bool {
	select {
	case <-ctx.Done():
		return false
	case lines <- line:
		return true
	}
}
