//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("metobs-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = tc.TerminateContainer(ctr)
	})

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err, "kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic %s", topic)
}

// startPostgres runs a throwaway PostgreSQL server and returns a lib/pq DSN.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "metobs",
			"POSTGRES_PASSWORD": "metobs",
			"POSTGRES_DB":       "metobs",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		_ = c.Terminate(context.Background())
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://metobs:metobs@%s/metobs?sslmode=disable", net.JoinHostPort(host, port.Port()))
}

// fakeMetobs serves data.csv bodies keyed by station id, mimicking the
// metobs API path layout.
func fakeMetobs(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /parameter/{p}/station/{s}/period/{period}/data.csv
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 7 || parts[6] != "data.csv" {
			http.NotFound(w, r)
			return
		}
		body, ok := bodies[parts[3]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const preamble = "Stationsnamn;Stationsnummer;Stationsnät;Mäthöjd (meter över marken)\n" +
	"Test;1;SMHIs stationsnät;2.0\n\n" +
	"Parameternamn;Beskrivning;Enhet\n" +
	"Lufttemperatur;momentanvärde, 1 gång/tim;degree celsius\n\n" +
	"Tidsperiod (fr.o.m);Tidsperiod (t.o.m);Höjd (meter över havet);Latitud (decimalgrader);Longitud (decimalgrader)\n" +
	"2005-01-01 00:00:00;2024-03-01 06:00:00;379.0;65.5903;19.1814\n\n\n" +
	"Datum;Tid (UTC);Lufttemperatur;Kvalitet;;Tidsutsnitt:\n"

func dataCSV(rows ...string) string {
	return preamble + strings.Join(rows, "\n") + "\n"
}
