package spec

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// routeDescriptor is the file form of one operation in a route-table
// document.
type routeDescriptor struct {
	OperationID    string               `yaml:"operationId"`
	ResponseCodes  []int                `yaml:"responseCodes"`
	RequestSchemas []string             `yaml:"requestSchemas"`
	IsIndex        *bool                `yaml:"isIndex"`
	Summary        string               `yaml:"summary"`
	Tags           []string             `yaml:"tags"`
	Responses      map[string]yaml.Node `yaml:"responses"`
}

// ParseRouteTable decodes a route-table document (YAML or JSON):
//
//	title: User API
//	routes:
//	  /users/{id}:
//	    get:
//	      operationId: usersGetById
//	      responseCodes: [200, 404]
//	      requestSchemas: [params]
//	      responses:
//	        "200": {type: object, properties: {id: {type: string}}}
//
// Route and method order follow the document.
func ParseRouteTable(data []byte) (*RouteTable, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse route table: %v", err), Cause: err}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, &SpecError{Code: ParseError, Message: "parse route table: document must be a mapping"}
	}
	doc := root.Content[0]

	table := &RouteTable{}
	var routes *yaml.Node
	for i := 0; i+1 < len(doc.Content); i += 2 {
		switch doc.Content[i].Value {
		case "title":
			table.Title = strings.TrimSpace(doc.Content[i+1].Value)
		case "routes":
			routes = doc.Content[i+1]
		}
	}
	if routes == nil || routes.Kind != yaml.MappingNode {
		return nil, &SpecError{Code: ParseError, Message: "parse route table: missing routes mapping", JSONPointer: "#/routes"}
	}

	for i := 0; i+1 < len(routes.Content); i += 2 {
		path := routes.Content[i].Value
		methods := routes.Content[i+1]
		if !strings.HasPrefix(path, "/") {
			return nil, &SpecError{Code: ValidationError, Message: fmt.Sprintf("route %q must start with /", path), JSONPointer: jsonPointer("routes", path)}
		}
		if methods.Kind != yaml.MappingNode {
			return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("route %s: expected a method mapping", path), JSONPointer: jsonPointer("routes", path)}
		}
		for j := 0; j+1 < len(methods.Content); j += 2 {
			rawMethod := methods.Content[j].Value
			ptr := jsonPointer("routes", path, rawMethod)
			method := strings.ToUpper(strings.TrimSpace(rawMethod))
			if !knownMethod(method) {
				return nil, &SpecError{Code: ValidationError, Message: fmt.Sprintf("route %s: unsupported method %q", path, rawMethod), JSONPointer: ptr}
			}
			var d routeDescriptor
			if err := methods.Content[j+1].Decode(&d); err != nil {
				return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("%s %s: %v", method, path, err), JSONPointer: ptr, Cause: err}
			}
			op, err := d.operation(method, path)
			if err != nil {
				return nil, &SpecError{Code: ValidationError, Message: fmt.Sprintf("%s %s: %v", method, path, err), JSONPointer: ptr, Cause: err}
			}
			table.Operations = append(table.Operations, op)
		}
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func (d *routeDescriptor) operation(method, path string) (Operation, error) {
	op := Operation{
		OperationID: strings.TrimSpace(d.OperationID),
		Method:      method,
		Path:        path,
		Summary:     strings.TrimSpace(d.Summary),
		Tags:        d.Tags,
		IsIndex:     isIndexRoute(path),
	}
	if op.OperationID == "" {
		op.OperationID = DeriveOperationID(method, path)
	}
	if d.IsIndex != nil {
		op.IsIndex = *d.IsIndex
	}
	for _, s := range d.RequestSchemas {
		part := RequestPart(strings.ToLower(strings.TrimSpace(s)))
		switch part {
		case PartParams, PartQuery, PartBody:
		default:
			return Operation{}, fmt.Errorf("unknown request schema %q", s)
		}
		if !op.Has(part) {
			op.RequestParts = append(op.RequestParts, part)
		}
	}

	codes := map[int]struct{}{}
	for _, c := range d.ResponseCodes {
		codes[c] = struct{}{}
	}
	for key, node := range d.Responses {
		code, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return Operation{}, fmt.Errorf("response code %q is not numeric", key)
		}
		var v any
		if err := node.Decode(&v); err != nil {
			return Operation{}, fmt.Errorf("response %d: %w", code, err)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return Operation{}, fmt.Errorf("response %d: schema is not JSON compatible: %w", code, err)
		}
		if op.Responses == nil {
			op.Responses = map[int]json.RawMessage{}
		}
		op.Responses[code] = raw
		codes[code] = struct{}{}
	}
	for c := range codes {
		op.ResponseCodes = append(op.ResponseCodes, c)
	}
	sort.Ints(op.ResponseCodes)
	return op, nil
}

func knownMethod(m string) bool {
	for _, x := range Methods {
		if x == m {
			return true
		}
	}
	return false
}
