package data

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const preferenceSchema = `
	CREATE TABLE IF NOT EXISTS report_preferences (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)
`

type Data struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	es      *elasticsearch.Client
}

// NewData 初始化数据库与搜索集群连接。未配置数据库时偏好存储退化为空实现。
func NewData(c *conf.Data, s *conf.Search, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	es, err := NewElasticsearch(s)
	if err != nil {
		return nil, nil, err
	}
	pingElasticsearch(es, helper)

	d := &Data{es: es}
	if c != nil && c.Database != nil && c.Database.Source != "" {
		db, err := sql.Open(c.Database.Driver, c.Database.Source)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, err
		}
		if _, err := db.Exec(preferenceSchema); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to init report_preferences table: %w", err)
		}
		d.db = db
		d.builder = statementBuilder(c.Database.Driver)
	} else {
		helper.Warn("database not configured, report email preferences are kept in cookies only")
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		if d.db != nil {
			d.db.Close()
		}
	}
	return d, cleanup, nil
}

// NewElasticsearch 构造搜索集群客户端：TLS + basic auth
func NewElasticsearch(s *conf.Search) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{}
	if s != nil {
		cfg.Addresses = s.Addresses
		cfg.Username = s.Username
		cfg.Password = s.Password
		cfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify},
		}
	}
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return es, nil
}

func pingElasticsearch(es *elasticsearch.Client, helper *log.Helper) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := es.Ping(es.Ping.WithContext(ctx))
	if err != nil {
		helper.Errorf("Failed to connect to Elasticsearch: %v", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		helper.Errorf("Failed to connect to Elasticsearch: %s", res.Status())
		return
	}
	helper.Info("Successfully connected to Elasticsearch")
}

// statementBuilder postgres 使用 $1 占位符，sqlite 使用 ?
func statementBuilder(driver string) sq.StatementBuilderType {
	if driver == "postgres" {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}
