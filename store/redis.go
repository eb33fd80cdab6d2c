package store

import (
	"fmt"
	"time"

	"github.com/Seklfreak/Guardian/models"
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
)

const (
	redisMemberKey      = "guardian:guild:%s:member:%s"
	redisImmuneRolesKey = "guardian:guild:%s:immune_roles"
	redisPingKey        = "guardian:connection_test"
)

// RedisStore stores msgpack encoded records in redis, keys are namespaced per guild.
// Merge writes are read-modify-write, concurrent writers for one member are last write wins.
type RedisStore struct {
	client *redis.Client
}

func ConnectRedis(address, password string, db int) (*RedisStore, error) {
	logger().WithField("backend", "redis").Info("Connecting to " + address)

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	err := client.Ping().Err()
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "connecting to redis failed")
	}

	logger().WithField("backend", "redis").Info("Connected!")
	return NewRedisStore(client), nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Ready() bool {
	return s.client != nil && s.client.Ping().Err() == nil
}

func (s *RedisStore) Ping() error {
	now := time.Now().UnixNano()

	err := s.client.Set(redisPingKey, now, time.Minute).Err()
	if err != nil {
		return errors.Wrap(err, "redis write failed")
	}

	read, err := s.client.Get(redisPingKey).Int64()
	if err != nil {
		return errors.Wrap(err, "redis read failed")
	}
	if read != now {
		return errors.New("redis write succeeded but read returned stale data")
	}
	return nil
}

func (s *RedisStore) UpsertMemberRecord(guildID, userID string, record models.MemberNameRecord, mergeOnly bool) error {
	record = prepareRecord(guildID, userID, record)

	if mergeOnly {
		current, found, err := s.GetMemberRecord(guildID, userID)
		if err != nil {
			return err
		}
		if found {
			record = current.Merge(record)
		}
	}

	data, err := msgpack.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "encoding member record failed")
	}

	err = s.client.Set(memberKeyFor(guildID, userID), data, 0).Err()
	return errors.Wrapf(err, "upserting member record %s/%s failed", guildID, userID)
}

func (s *RedisStore) GetMemberRecord(guildID, userID string) (models.MemberNameRecord, bool, error) {
	var record models.MemberNameRecord

	data, err := s.client.Get(memberKeyFor(guildID, userID)).Bytes()
	if err == redis.Nil {
		return record, false, nil
	}
	if err != nil {
		return record, false, errors.Wrapf(err, "reading member record %s/%s failed", guildID, userID)
	}

	err = msgpack.Unmarshal(data, &record)
	if err != nil {
		return record, false, errors.Wrapf(err, "decoding member record %s/%s failed", guildID, userID)
	}
	return record, true, nil
}

func (s *RedisStore) UpsertImmuneRole(record models.ImmuneRoleRecord) error {
	data, err := msgpack.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "encoding immune role failed")
	}

	err = s.client.HSet(immuneRolesKeyFor(record.GuildID), record.RoleID, data).Err()
	return errors.Wrapf(err, "upserting immune role %s/%s failed", record.GuildID, record.RoleID)
}

func (s *RedisStore) DeleteImmuneRole(guildID, roleID string) error {
	err := s.client.HDel(immuneRolesKeyFor(guildID), roleID).Err()
	return errors.Wrapf(err, "deleting immune role %s/%s failed", guildID, roleID)
}

func (s *RedisStore) ListImmuneRoles(guildID string) ([]models.ImmuneRoleRecord, error) {
	entries, err := s.client.HGetAll(immuneRolesKeyFor(guildID)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "listing immune roles of %s failed", guildID)
	}

	records := make([]models.ImmuneRoleRecord, 0, len(entries))
	for roleID, data := range entries {
		var record models.ImmuneRoleRecord
		err = msgpack.Unmarshal([]byte(data), &record)
		if err != nil {
			logger().WithField("backend", "redis").Warnf("skipping undecodable immune role %s/%s: %s", guildID, roleID, err.Error())
			continue
		}
		records = append(records, record)
	}
	sortImmuneRoles(records)
	return records, nil
}

func (s *RedisStore) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

func memberKeyFor(guildID, userID string) string {
	return fmt.Sprintf(redisMemberKey, guildID, userID)
}

func immuneRolesKeyFor(guildID string) string {
	return fmt.Sprintf(redisImmuneRolesKey, guildID)
}
