package ingest

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/healthdash/internal/telemetry/metrics"
	"github.com/2beens/healthdash/pkg"

	log "github.com/sirupsen/logrus"
)

// ImportNotification is what the importer CLI reports to the running service.
type ImportNotification struct {
	RecordsCount int
	Duration     time.Duration
}

// Message encodes the notification as "records-count::N||duration::S".
func (n ImportNotification) Message() string {
	return fmt.Sprintf("records-count::%d||duration::%f", n.RecordsCount, n.Duration.Seconds())
}

func ParseImportNotification(msg string) (ImportNotification, error) {
	parts := strings.Split(strings.TrimSpace(msg), "||")
	if len(parts) != 2 {
		return ImportNotification{}, fmt.Errorf("invalid message [%s]", msg)
	}

	countStr, err := messageValue(parts[0], "records-count")
	if err != nil {
		return ImportNotification{}, err
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 0 {
		return ImportNotification{}, fmt.Errorf("invalid records count [%s]", countStr)
	}

	durationStr, err := messageValue(parts[1], "duration")
	if err != nil {
		return ImportNotification{}, err
	}
	seconds, err := strconv.ParseFloat(durationStr, 64)
	if err != nil || seconds < 0 {
		return ImportNotification{}, fmt.Errorf("invalid duration [%s]", durationStr)
	}

	return ImportNotification{
		RecordsCount: count,
		Duration:     time.Duration(seconds * float64(time.Second)),
	}, nil
}

func messageValue(part, name string) (string, error) {
	kv := strings.Split(part, "::")
	if len(kv) != 2 || kv[0] != name {
		return "", fmt.Errorf("invalid %s info [%s]", name, part)
	}
	return kv[1], nil
}

// ImportUnixSocketListenerSetup listens for import notifications from the
// importer CLI. Each valid notification is recorded in metrics and passed to
// onImport (the service reloads its snapshot there).
func ImportUnixSocketListenerSetup(
	ctx context.Context,
	socketAddrDir, socketFileName string,
	metricsManager *metrics.Manager,
	onImport func(ctx context.Context, n ImportNotification) error,
) (net.Addr, error) {
	socket := filepath.Join(socketAddrDir, socketFileName)
	// stale socket of a previous run
	_ = os.Remove(socket)

	listener, err := net.Listen("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("binding to unix socket %s: %w", socket, err)
	}

	if err := os.Chmod(socket, os.ModeSocket|0o660); err != nil {
		_ = listener.Close()
		return nil, err
	}

	go func() {
		<-ctx.Done()
		log.Debugln("import unix socket listener context done, closing listener")
		_ = listener.Close()
	}()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() == nil {
					log.Errorf("import unix socket listener conn accept: %s", err)
				}
				return
			}

			if err := conn.SetDeadline(time.Now().Add(time.Minute)); err != nil {
				log.Errorf("failed to set conn timeout: %s", err)
				_ = conn.Close()
				continue
			}

			go handleImportConn(ctx, conn, metricsManager, onImport)
		}
	}()

	return listener.Addr(), nil
}

func handleImportConn(
	ctx context.Context,
	conn net.Conn,
	metricsManager *metrics.Manager,
	onImport func(ctx context.Context, n ImportNotification) error,
) {
	defer func() { _ = conn.Close() }()

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		return
	}

	messageReceived := pkg.BytesToString(buf[:n])
	log.Infof("import unix socket received: %s", messageReceived)

	notification, err := ParseImportNotification(messageReceived)
	if err != nil {
		log.Errorf("import conn: %s", err)
		_, _ = conn.Write([]byte("error"))
		return
	}

	if metricsManager != nil {
		metricsManager.CounterImports.WithLabelValues("ok").Inc()
		metricsManager.CounterImportedRecords.Add(float64(notification.RecordsCount))
		metricsManager.HistImportDuration.Observe(notification.Duration.Seconds())
	}

	reply := "ok"
	if onImport != nil {
		if err := onImport(ctx, notification); err != nil {
			log.Errorf("import conn, handle notification: %s", err)
			reply = "error"
		}
	}

	if _, err := conn.Write([]byte(reply)); err != nil {
		log.Errorf("import conn, send response: %s", err)
	}
}

// NotifyImport sends a notification to the service listening on socketPath
// and waits for its reply.
func NotifyImport(ctx context.Context, socketPath string, n ImportNotification) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(time.Minute)); err != nil {
		return err
	}
	if _, err := conn.Write([]byte(n.Message())); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	buf := make([]byte, 64)
	read, err := conn.Read(buf)
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if reply := string(buf[:read]); reply != "ok" {
		return fmt.Errorf("service replied [%s]", reply)
	}
	return nil
}
