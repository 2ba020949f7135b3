package bus

import (
	"fmt"
	"strings"

	"github.com/equipfind/equipfind/internal/config"
	"github.com/equipfind/equipfind/internal/pkg/errors"
	"github.com/equipfind/equipfind/internal/pkg/logger"
)

// NewBus creates the bus selected by the configuration. When an event log
// path is set, every published event is also appended to that file.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	var b Bus

	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		b = NewMemoryBus(log)

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}

		consumerGroup := cfg.KafkaGroup
		if consumerGroup == "" {
			consumerGroup = "equipfind"
		}

		kb, err := NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
			ClientID:      "equipfind-bus",
		}, log)
		if err != nil {
			return nil, err
		}
		b = kb

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}

	if cfg.EventLog == "" {
		return b, nil
	}

	eventLogger, err := NewEventLogger(cfg.EventLog, true)
	if err != nil {
		b.Close()
		return nil, errors.Wrap(errors.CodeBusError, "failed to open event log", err)
	}
	return NewLoggedBus(b, eventLogger, log), nil
}
