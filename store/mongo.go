package store

import (
	"crypto/tls"
	"net"
	"strings"
	"time"

	"github.com/Seklfreak/Guardian/models"
	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
	"github.com/pkg/errors"
)

const (
	mongoTestCollection models.MongoDbCollection = "guardian_connection_test"
)

type mgoLogger struct{}

func (mgol mgoLogger) Output(calldepth int, s string) error {
	// ignore SYNC messages
	if strings.HasPrefix(s, "SYNC ") {
		return nil
	}

	logger().WithField("backend", "mongodb").Debug(s)
	return nil
}

// MongoStore stores records in MongoDB, one document per member and per immune role
type MongoStore struct {
	session  *mgo.Session
	database string
}

// ConnectMongo dials url and ensures the indexes of the guardian collections
func ConnectMongo(url string, database string, debug bool) (*MongoStore, error) {
	log := logger().WithField("backend", "mongodb")
	log.Info("Connecting to " + url)

	if debug {
		mgo.SetDebug(true)
		mgo.SetLogger(mgoLogger{})
	}

	newUrl := strings.TrimSuffix(url, "?ssl=true")
	newUrl = strings.Replace(newUrl, "ssl=true&", "", -1)

	dialInfo, err := mgo.ParseURL(newUrl)
	if err != nil {
		return nil, errors.Wrap(err, "parsing mongodb url failed")
	}
	dialInfo.Timeout = 10 * time.Second

	// setup TLS if we use SSL
	if newUrl != url {
		tlsConfig := &tls.Config{}

		dialInfo.DialServer = func(addr *mgo.ServerAddr) (net.Conn, error) {
			return tls.Dial("tcp", addr.String(), tlsConfig)
		}
	}

	session, err := mgo.DialWithInfo(dialInfo)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb failed")
	}

	session.SetMode(mgo.Primary, false)
	session.SetSafe(&mgo.Safe{})

	s := &MongoStore{session: session, database: database}
	err = s.ensureIndexes()
	if err != nil {
		session.Close()
		return nil, err
	}

	log.Info("Connected!")
	return s, nil
}

func (s *MongoStore) ensureIndexes() error {
	err := s.collection(models.MemberNamesTable).EnsureIndex(mgo.Index{
		Key:    []string{"guildid", "userid"},
		Unique: true,
	})
	if err != nil {
		return errors.Wrap(err, "creating member names index failed")
	}

	err = s.collection(models.ImmuneRolesTable).EnsureIndex(mgo.Index{
		Key:    []string{"guildid", "roleid"},
		Unique: true,
	})
	return errors.Wrap(err, "creating immune roles index failed")
}

func (s *MongoStore) collection(collection models.MongoDbCollection) *mgo.Collection {
	return s.session.DB(s.database).C(collection.String())
}

func (s *MongoStore) Ready() bool {
	return s.session != nil && s.session.Ping() == nil
}

func (s *MongoStore) Ping() error {
	selector := bson.M{"_id": "connection_test"}
	now := time.Now().UTC().Truncate(time.Millisecond)

	_, err := s.collection(mongoTestCollection).Upsert(selector, bson.M{"$set": bson.M{"timestamp": now, "test": "success"}})
	if err != nil {
		return errors.Wrap(err, "mongodb write failed")
	}

	var result struct {
		Timestamp time.Time `bson:"timestamp"`
	}
	err = s.collection(mongoTestCollection).Find(selector).One(&result)
	if err != nil {
		return errors.Wrap(err, "mongodb read failed")
	}
	if !result.Timestamp.Equal(now) {
		return errors.New("mongodb write succeeded but read returned stale data")
	}
	return nil
}

func (s *MongoStore) UpsertMemberRecord(guildID, userID string, record models.MemberNameRecord, mergeOnly bool) error {
	selector := bson.M{"guildid": guildID, "userid": userID}
	record = prepareRecord(guildID, userID, record)

	var update interface{} = record
	if mergeOnly {
		set := bson.M{
			"nickname":     record.Nickname,
			"lastupdated":  record.LastUpdated,
			"isselfchange": record.IsSelfChange,
			"username":     record.Username,
		}
		if record.UpdatedBy != "" {
			set["updatedby"] = record.UpdatedBy
		}
		update = bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"guildid": guildID, "userid": userID},
		}
	}

	_, err := s.collection(models.MemberNamesTable).Upsert(selector, update)
	return errors.Wrapf(err, "upserting member record %s/%s failed", guildID, userID)
}

func (s *MongoStore) GetMemberRecord(guildID, userID string) (models.MemberNameRecord, bool, error) {
	var record models.MemberNameRecord

	err := s.collection(models.MemberNamesTable).Find(bson.M{"guildid": guildID, "userid": userID}).One(&record)
	if err == mgo.ErrNotFound {
		return record, false, nil
	}
	if err != nil {
		return record, false, errors.Wrapf(err, "reading member record %s/%s failed", guildID, userID)
	}
	return record, true, nil
}

func (s *MongoStore) UpsertImmuneRole(record models.ImmuneRoleRecord) error {
	_, err := s.collection(models.ImmuneRolesTable).Upsert(
		bson.M{"guildid": record.GuildID, "roleid": record.RoleID},
		record,
	)
	return errors.Wrapf(err, "upserting immune role %s/%s failed", record.GuildID, record.RoleID)
}

func (s *MongoStore) DeleteImmuneRole(guildID, roleID string) error {
	err := s.collection(models.ImmuneRolesTable).Remove(bson.M{"guildid": guildID, "roleid": roleID})
	if err == mgo.ErrNotFound {
		return nil
	}
	return errors.Wrapf(err, "deleting immune role %s/%s failed", guildID, roleID)
}

func (s *MongoStore) ListImmuneRoles(guildID string) ([]models.ImmuneRoleRecord, error) {
	records := make([]models.ImmuneRoleRecord, 0)

	err := s.collection(models.ImmuneRolesTable).Find(bson.M{"guildid": guildID}).Sort("addedat", "roleid").All(&records)
	if err != nil {
		return nil, errors.Wrapf(err, "listing immune roles of %s failed", guildID)
	}
	return records, nil
}

func (s *MongoStore) Close() {
	if s.session != nil {
		s.session.Close()
	}
}
