package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPubSubCommand(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pubsub",
		Short: "Publish, pull and acknowledge Pub/Sub messages",
	}
	cmd.AddCommand(
		newPubSubPublishCommand(f),
		newPubSubPullCommand(f),
		newPubSubAckCommand(f),
	)
	return cmd
}

func newPubSubPublishCommand(f *Factory) *cobra.Command {
	var attrs []string

	cmd := &cobra.Command{
		Use:   "publish <projects/P/topics/T> <message>",
		Short: "Publish one message to a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			attributes, err := parseAttributes(attrs)
			if err != nil {
				return err
			}

			client, err := f.PubSubClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			resp, err := client.Publish(cmd.Context(), args[0], []byte(args[1]), attributes)
			if err != nil {
				return err
			}
			if f.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			for _, id := range resp.GetMessageIds() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&attrs, "attribute", "a", nil, "Message attribute as key=value (repeatable)")
	return cmd
}

func newPubSubPullCommand(f *Factory) *cobra.Command {
	var ack bool

	cmd := &cobra.Command{
		Use:   "pull <projects/P/subscriptions/S>",
		Short: "Pull available messages from a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := f.PubSubClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			resp, err := client.Pull(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if f.jsonOutput() {
				if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
			} else {
				t := newTable(cmd.OutOrStdout(), table.Row{"Message ID", "Data", "Attributes", "Ack ID"})
				for _, rm := range resp.GetReceivedMessages() {
					msg := rm.GetMessage()
					t.AppendRow(table.Row{msg.GetMessageId(), string(msg.GetData()), formatAttributes(msg.GetAttributes()), rm.GetAckId()})
				}
				t.Render()
			}

			if !ack || len(resp.GetReceivedMessages()) == 0 {
				return nil
			}
			ackIDs := make([]string, 0, len(resp.GetReceivedMessages()))
			for _, rm := range resp.GetReceivedMessages() {
				ackIDs = append(ackIDs, rm.GetAckId())
			}
			if err := client.Acknowledge(cmd.Context(), args[0], ackIDs); err != nil {
				return err
			}
			log.Info().Int("count", len(ackIDs)).Msg("messages acknowledged")
			return nil
		},
	}
	cmd.Flags().BoolVar(&ack, "ack", false, "Acknowledge the pulled messages")
	return cmd
}

func newPubSubAckCommand(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "ack <projects/P/subscriptions/S> <ack id>...",
		Short: "Acknowledge messages by ack ID",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := f.PubSubClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			if err := client.Acknowledge(cmd.Context(), args[0], args[1:]); err != nil {
				return err
			}
			log.Info().Int("count", len(args)-1).Msg("messages acknowledged")
			return nil
		},
	}
}

// parseAttributes turns key=value pairs into a map. Later keys win.
func parseAttributes(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid attribute %q, expected key=value", pair)
		}
		attrs[key] = value
	}
	return attrs, nil
}

func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, ",")
}
