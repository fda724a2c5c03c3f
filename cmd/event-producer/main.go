package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// RankChangeEvent mirrors the event format consumed by the server
type RankChangeEvent struct {
	ID        string    `json:"id"`
	Board     string    `json:"board"`
	UserID    uint32    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	EventType string    `json:"event_type"`
	OldRank   int64     `json:"old_rank,omitempty"`
	NewRank   int64     `json:"new_rank"`
	OldValue  float64   `json:"old_value,omitempty"`
	NewValue  float64   `json:"new_value"`
	Timestamp time.Time `json:"timestamp"`
}

var usernamePrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Ninja", "Dragon", "Wolf", "Hawk", "Viper",
	"Ghost", "Titan", "Frost", "Cyber", "Nova", "Raven", "Omega", "Alpha", "Delta", "Sigma",
	"Ace", "Bolt", "Crash", "Dash", "Edge", "Flash", "Glitch", "Haze", "Ion", "Jade",
	"Knight", "Luna", "Mystic", "Neon", "Orion", "Pulse", "Quantum", "Rebel", "Spark", "Turbo",
}

func getUsername(idx int) string {
	prefixIdx := idx % len(usernamePrefixes)
	suffix := idx/len(usernamePrefixes) + 1
	return fmt.Sprintf("%s%d", usernamePrefixes[prefixIdx], suffix)
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "rankwatch-rank-events", "Kafka topic")
	board := flag.String("board", "osu:performance", "Board id (mode:kind)")
	totalPlayers := flag.Int("players", 200, "Number of distinct players to simulate")
	eventsPerSecond := flag.Int("rate", 20, "Events per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  🚀 Rank Event Producer")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:          %s\n", *brokers)
	fmt.Printf("  Topic:            %s\n", *topic)
	fmt.Printf("  Board:            %s\n", *board)
	fmt.Printf("  Players:          %d\n", *totalPlayers)
	fmt.Printf("  Events/sec:       %d\n", *eventsPerSecond)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// Create producer
	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	// Track a synthetic rank per player so consecutive events look plausible
	ranks := make([]int64, *totalPlayers)
	values := make([]float64, *totalPlayers)
	for i := range ranks {
		ranks[i] = int64(i + 1)
		values[i] = 20000 / float64(i+1)
	}

	// Send message helper
	sendEvent := func(event RankChangeEvent) {
		data, err := json.Marshal(event)
		if err != nil {
			log.Printf("Failed to marshal event: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(uint64(event.UserID), 10)),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	fmt.Printf("Emitting rank events (%d/sec)\n", *eventsPerSecond)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	interval := time.Second / time.Duration(*eventsPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	var eventCount int64

	shutdown := func() {
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\n✓ Completed. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	for {
		select {
		case <-sigChan:
			fmt.Println("\n\nShutting down...")
			shutdown()
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				fmt.Println("\n\nDuration reached, shutting down...")
				shutdown()
				return
			}

			// 70% chance to move someone near the top (to create visible churn)
			var playerIdx int
			if rand.Intn(100) < 70 && *totalPlayers > 20 {
				playerIdx = rand.Intn(20)
			} else {
				playerIdx = rand.Intn(*totalPlayers)
			}

			oldRank := ranks[playerIdx]
			oldValue := values[playerIdx]
			delta := int64(rand.Intn(5) - 2)
			newRank := oldRank + delta
			if newRank < 1 {
				newRank = 1
			}
			if newRank > int64(*totalPlayers) {
				newRank = int64(*totalPlayers)
			}
			ranks[playerIdx] = newRank
			values[playerIdx] = oldValue * (1 + rand.Float64()*0.01)

			event := RankChangeEvent{
				ID:        uuid.New().String(),
				Board:     *board,
				UserID:    uint32(playerIdx + 1000),
				Username:  getUsername(playerIdx),
				EventType: "rank_change",
				OldRank:   oldRank,
				NewRank:   newRank,
				OldValue:  oldValue,
				NewValue:  values[playerIdx],
				Timestamp: time.Now(),
			}
			sendEvent(event)
			atomic.AddInt64(&eventCount, 1)

		case <-statsTicker.C:
			events := atomic.LoadInt64(&eventCount)
			success := atomic.LoadInt64(&successCount)
			errors := atomic.LoadInt64(&errorCount)
			fmt.Printf("[%s] Events: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				events,
				success,
				errors,
			)
		}
	}
}
