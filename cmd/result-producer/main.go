package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

// ResultReport is the match outcome message published to the results topic
type ResultReport struct {
	ChallengeID string `json:"challenge_id"`
	WinnerID    string `json:"winner_id"`
	Score       string `json:"score"`
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "ladder-match-results", "Kafka topic")
	challengeID := flag.String("challenge", "", "Challenge ID the result belongs to")
	winnerID := flag.String("winner", "", "Winning player ID")
	score := flag.String("score", "", "Final score, e.g. 7-4")
	flag.Parse()

	if *challengeID == "" || *winnerID == "" {
		log.Fatal("both -challenge and -winner are required")
	}

	brokerList := strings.Split(*brokers, ",")

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	report := ResultReport{
		ChallengeID: *challengeID,
		WinnerID:    *winnerID,
		Score:       *score,
	}
	data, err := json.Marshal(report)
	if err != nil {
		log.Fatalf("Failed to marshal report: %v", err)
	}

	// Key by challenge ID so duplicate reports land on the same partition
	// and are seen in order by the consumer.
	msg := &sarama.ProducerMessage{
		Topic: *topic,
		Key:   sarama.StringEncoder(report.ChallengeID),
		Value: sarama.ByteEncoder(data),
	}

	start := time.Now()
	partition, offset, err := producer.SendMessage(msg)
	if err != nil {
		log.Fatalf("Failed to send report: %v", err)
	}

	fmt.Printf("Result published: challenge=%s winner=%s partition=%d offset=%d (%s)\n",
		report.ChallengeID, report.WinnerID, partition, offset, time.Since(start))
}
