package rest

import (
	"github.com/emicklei/go-restful"
	"github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonIteratorAccessor encodes and decodes JSON entities with json-iterator
type jsonIteratorAccessor struct{}

// RegisterEntityAccessor replaces the default JSON entity accessor of go-restful,
// requests without an Accept header get JSON
func RegisterEntityAccessor() {
	restful.RegisterEntityAccessor(restful.MIME_JSON, jsonIteratorAccessor{})
	restful.DefaultResponseContentType(restful.MIME_JSON)
}

func (jsonIteratorAccessor) Read(req *restful.Request, v interface{}) error {
	return json.NewDecoder(req.Request.Body).Decode(v)
}

func (jsonIteratorAccessor) Write(resp *restful.Response, status int, v interface{}) error {
	if v == nil {
		resp.WriteHeader(status)
		return nil
	}

	output, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if resp.Header().Get(restful.HEADER_ContentType) == "" {
		resp.Header().Set(restful.HEADER_ContentType, restful.MIME_JSON)
	}
	resp.WriteHeader(status)
	_, err = resp.Write(output)
	return err
}
