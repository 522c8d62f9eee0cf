// Package main provides a synthetic order generator that publishes
// randomized orders to the queue for testing the pipeline end to end.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	"github.com/jnst/order-stats-pipeline/internal/config"
	"github.com/jnst/order-stats-pipeline/internal/queue"
)

var users = []string{"U5678", "U1234", "U9999", "U1111", "U2222"}

type product struct {
	ID    string
	Price float64
}

var products = []product{
	{ID: "P001", Price: 20.00},
	{ID: "P002", Price: 59.99},
	{ID: "P003", Price: 15.50},
	{ID: "P004", Price: 100.00},
	{ID: "P005", Price: 5.99},
}

type orderPayload struct {
	OrderID         string        `json:"order_id"`
	UserID          string        `json:"user_id,omitempty"`
	OrderTimestamp  string        `json:"order_timestamp"`
	OrderValue      float64       `json:"order_value"`
	Items           []itemPayload `json:"items"`
	ShippingAddress string        `json:"shipping_address"`
	PaymentMethod   string        `json:"payment_method"`
}

type itemPayload struct {
	ProductID    string  `json:"product_id"`
	Quantity     int     `json:"quantity"`
	PricePerUnit float64 `json:"price_per_unit"`
}

func randomOrder(invalidRate float64) orderPayload {
	itemCount := 1 + rand.Intn(5)
	items := make([]itemPayload, itemCount)

	total := 0.0

	for i := range items {
		p := products[rand.Intn(len(products))]
		quantity := 1 + rand.Intn(10)
		total += float64(quantity) * p.Price
		items[i] = itemPayload{
			ProductID:    p.ID,
			Quantity:     quantity,
			PricePerUnit: p.Price,
		}
	}

	order := orderPayload{
		OrderID:         "ORD-" + uuid.NewString()[:8],
		UserID:          users[rand.Intn(len(users))],
		OrderTimestamp:  time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		OrderValue:      total,
		Items:           items,
		ShippingAddress: "123 Main St, Springfield",
		PaymentMethod:   "CreditCard",
	}

	if rand.Float64() < invalidRate {
		if rand.Intn(2) == 0 {
			order.UserID = "" // required-field violation
		} else {
			order.OrderValue = total + 1 + rand.Float64()*20 // value mismatch
		}
	}

	return order
}

func main() {
	var (
		count       int
		invalidRate float64
	)

	flag.IntVar(&count, "count", 100, "number of orders to publish")
	flag.Float64Var(&invalidRate, "invalid-rate", 0.1, "fraction of orders made invalid")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
	if err != nil {
		log.Fatal("failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	orderQueue := queue.NewStreamQueue(redisClient, cfg.StreamKey, "", "")

	ctx := context.Background()
	published := 0

	for i := 0; i < count; i++ {
		order := randomOrder(invalidRate)

		body, err := json.Marshal(order)
		if err != nil {
			log.Printf("failed to marshal order %s: %v", order.OrderID, err)

			continue
		}

		if err := orderQueue.Publish(ctx, body); err != nil {
			log.Printf("failed to publish order %s: %v", order.OrderID, err)

			continue
		}

		published++
	}

	log.Printf("published %d/%d orders to stream %s", published, count, cfg.StreamKey)
}
