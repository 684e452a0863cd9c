package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

const cartTTL = 30 * 24 * time.Hour

// Connect initializes the Redis client used for cart storage.
func Connect(addr, password string) error {
	client = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return client.Ping(context.Background()).Err()
}

// Close shuts down the Redis connection.
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// CartEntry is one line of a server-side cart. Prices are not stored here:
// checkout always re-reads the catalog.
type CartEntry struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

// GetCart loads the saved cart for a user. A missing key is an empty cart.
func GetCart(ctx context.Context, userID string) ([]CartEntry, error) {
	data, err := client.Get(ctx, cartKey(userID)).Result()
	if err == redis.Nil {
		return []CartEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var cart []CartEntry
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// SaveCart replaces the user's cart.
func SaveCart(ctx context.Context, userID string, cart []CartEntry) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return client.Set(ctx, cartKey(userID), data, cartTTL).Err()
}

// ClearCart removes the user's cart, typically after a successful checkout.
func ClearCart(ctx context.Context, userID string) error {
	return client.Del(ctx, cartKey(userID)).Err()
}
