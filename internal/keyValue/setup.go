package keyValue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backed by redis normally, or by an in-process map in self-contained
// mode so the binary runs without any external service.

type localValue struct {
	value   string
	expires time.Time
}

var (
	mutex   sync.RWMutex
	hashmap = make(map[string]localValue)

	sugar         *zap.SugaredLogger
	redisClient   *redis.Client
	redisCtx      = context.Background()
	selfContained = true
)

func Setup(_sugar *zap.SugaredLogger, _redisClient *redis.Client, _selfContained bool) {
	sugar = _sugar
	redisClient = _redisClient
	selfContained = _selfContained

	if selfContained {
		go evictLocalExpiredKeys()
	}
}

func evictLocalExpiredKeys() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		mutex.Lock()
		now := time.Now()
		for key, v := range hashmap {
			if v.expires.Before(now) {
				delete(hashmap, key)
			}
		}
		mutex.Unlock()
	}
}

func Get(key string) (string, error) {
	if selfContained {
		mutex.RLock()
		defer mutex.RUnlock()

		return hashmap[key].value, nil
	}

	value, err := redisClient.Get(redisCtx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return value, nil
}

func GetDel(key string) (string, error) {
	if selfContained {
		mutex.Lock()
		defer mutex.Unlock()

		value := hashmap[key].value
		delete(hashmap, key)

		return value, nil
	}

	value, err := redisClient.GetDel(redisCtx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return value, nil
}

func Set(key string, value string, expires time.Duration) error {
	if selfContained {
		mutex.Lock()
		defer mutex.Unlock()

		hashmap[key] = localValue{value, time.Now().Add(expires)}

		return nil
	}

	sugar.Debugf("Setting key [%s] in redis", key)
	_, err := redisClient.Set(redisCtx, key, value, expires).Result()
	return err
}

func Delete(key string) error {
	if selfContained {
		mutex.Lock()
		defer mutex.Unlock()

		delete(hashmap, key)
		return nil
	}

	return redisClient.Del(redisCtx, key).Err()
}
