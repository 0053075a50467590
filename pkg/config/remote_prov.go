package config

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/cenk/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/awesome-flow/eventgen/pkg/types"
)

const (
	ACLKey = "eai:acl"

	RemoteFetchTimeout    = 5 * time.Second
	RemoteMaxElapsedTime  = 30 * time.Second
	remoteMetaFieldPrefix = "eai:"
)

// RemoteProv fetches stanzas from a REST configuration catalog. The catalog
// responds with a JSON document listing one entry per stanza:
//
//   {"entry": [{"name": "web.log", "acl": {"app": "myapp"},
//               "content": {"interval": "10", "eai:appName": "myapp"}}]}
//
// Content keys prefixed with "eai:" are catalog metadata and are dropped;
// the entry ACL becomes the stanza access-control key.
type RemoteProv struct {
	fetchUrl   string
	weight     uint32
	client     *http.Client
	cache      *CacheFile
	maxElapsed time.Duration
	stanzas    []*types.Stanza
}

var _ Provider = (*RemoteProv)(nil)

// NewRemoteProv creates a remote provider. cache may be nil.
func NewRemoteProv(fetchUrl string, weight uint32, cache *CacheFile) *RemoteProv {
	return &RemoteProv{
		fetchUrl:   fetchUrl,
		weight:     weight,
		client:     &http.Client{Timeout: RemoteFetchTimeout},
		cache:      cache,
		maxElapsed: RemoteMaxElapsedTime,
	}
}

func (rp *RemoteProv) Setup() error {
	return nil
}

func (rp *RemoteProv) Resolve() error {
	var body []byte
	fetch := func() error {
		b, err := rp.fetch()
		if err != nil {
			return err
		}
		body = b
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = rp.maxElapsed
	fetchErr := backoff.RetryNotify(fetch, b, func(err error, dur time.Duration) {
		log.Warnf("Failed to fetch configuration from %s: %s. Next retry in %s", rp.fetchUrl, err, dur)
	})
	if fetchErr != nil {
		if rp.cache == nil {
			return fetchErr
		}
		cached, err := rp.cache.Read()
		if err != nil {
			return errors.Wrapf(fetchErr, "no usable cache (%s)", err)
		}
		log.Warnf("Using cached configuration from %s", rp.cache.GetPath())
		body = cached
	} else if rp.cache != nil {
		if err := rp.cache.Consolidate(body); err != nil {
			log.Warnf("Failed to cache remote configuration: %s", err)
		}
	}

	stanzas, err := parseCatalog(body)
	if err != nil {
		return err
	}
	rp.stanzas = stanzas
	return nil
}

func (rp *RemoteProv) fetch() ([]byte, error) {
	res, err := rp.client.Get(rp.fetchUrl)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response code returned: %d", res.StatusCode)
	}
	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response from the server")
	}
	return body, nil
}

func parseCatalog(body []byte) ([]*types.Stanza, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("remote catalog is not a valid JSON document")
	}
	entries := gjson.GetBytes(body, "entry")
	if !entries.IsArray() {
		return nil, fmt.Errorf("remote catalog has no entry list")
	}
	stanzas := make([]*types.Stanza, 0)
	entries.ForEach(func(_, entry gjson.Result) bool {
		st := types.NewStanza(entry.Get("name").String())
		entry.Get("content").ForEach(func(key, value gjson.Result) bool {
			k := key.String()
			if strings.HasPrefix(k, remoteMetaFieldPrefix) && k != ACLKey {
				return true
			}
			st.Set(k, remoteValue(value))
			return true
		})
		if app := entry.Get("acl.app").String(); len(app) > 0 {
			st.Set(ACLKey, map[string]interface{}{"app": app})
		}
		stanzas = append(stanzas, st)
		return true
	})
	return stanzas, nil
}

// remoteValue keeps scalars as strings, the way file-based sources deliver
// them, and decodes containers.
func remoteValue(v gjson.Result) interface{} {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.JSON:
		return v.Value()
	}
	return v.String()
}

func (rp *RemoteProv) Stanzas() []*types.Stanza {
	return rp.stanzas
}

func (rp *RemoteProv) GetWeight() uint32 {
	return rp.weight
}

func (rp *RemoteProv) DependsOn() []string {
	return []string{}
}

func (rp *RemoteProv) GetName() string {
	return "remote:" + rp.fetchUrl
}
