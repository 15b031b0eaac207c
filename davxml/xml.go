// Copyright 2014 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package davxml implements the WebDAV property engine: mapping property
// names to XML elements in the DAV/CalDAV/CardDAV namespaces, and assembling
// multistatus responses. It also parses the PROPFIND, PROPPATCH and LOCK
// request bodies.
package davxml

import (
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	wp "github.com/omarbenhamid/godav/path"
)

// Namespace prefixes advertised on every multistatus root element.
const (
	DAVNamespace     = "DAV:"
	CalDAVNamespace  = "urn:ietf:params:xml:ns:caldav"
	CardDAVNamespace = "urn:ietf:params:xml:ns:carddav"
)

// MaxXMLBodyBytes bounds how much of a request body PROPFIND/PROPPATCH/LOCK
// will decode, as a defense against entity-expansion style abuse. It is not
// a substitute for disabling DTD/external-entity resolution — encoding/xml
// never fetches externals — but it keeps a malicious or buggy client from
// forcing unbounded decoding work.
const MaxXMLBodyBytes = 4 << 20 // 4MiB

func boundedDecoder(in io.Reader) *xml.Decoder {
	return xml.NewDecoder(io.LimitReader(in, MaxXMLBodyBytes))
}

// Property names are written "namespace:local" (e.g. "DAV::getetag"): the
// namespace is everything before the last colon.
func x2s(xn xml.Name) string {
	return xn.Space + ":" + xn.Local
}

func s2x(s string) xml.Name {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return xml.Name{Local: s}
	}
	return xml.Name{Space: s[:idx], Local: s[idx+1:]}
}

// Any is a single XML property element, addressed by "namespace:local" name.
type Any struct {
	XMLName xml.Name
	XMLNS   string `xml:"xmlns,attr,omitempty"`
	Value   string `xml:",chardata"`
	Inner   string `xml:",innerxml"`
}

// NewAny builds an empty property element for the given "namespace:local"
// name.
func NewAny(n string) Any {
	xn := s2x(n)
	a := Any{XMLName: xn, XMLNS: xn.Space}
	// Go's encoding/xml cannot express nested namespace scoping well; the
	// namespace is carried in XMLNS and the element name left bare.
	a.XMLName.Space = ""
	return a
}

type prop struct {
	XMLName xml.Name `xml:"prop"`
	XMLNS   string   `xml:"xmlns,attr,omitempty"`
	Any     []Any    `xml:",any"`
}

type multiProp struct {
	XMLName    xml.Name `xml:"propstat"`
	Prop       prop     `xml:"prop,omitempty"`
	PropStatus string   `xml:"status,omitempty"`
}

type multiResponse struct {
	XMLName xml.Name `xml:"response"`
	Href    string   `xml:"href"`
	Status  string   `xml:"status,omitempty"`
	Props   []multiProp
}

// MultiStatus assembles a 207 response body across multiple hrefs.
type MultiStatus struct {
	XMLName  xml.Name `xml:"multistatus"`
	XMLNS    string   `xml:"xmlns,attr"`
	XMLNSCal string   `xml:"xmlns:cal,attr"`
	XMLNSVcf string   `xml:"xmlns:card,attr"`
	Response []multiResponse
}

// NewMultiStatus creates an empty multistatus body with the DAV/CalDAV/
// CardDAV namespaces declared on the root element.
func NewMultiStatus() *MultiStatus {
	return &MultiStatus{
		XMLNS:    DAVNamespace,
		XMLNSCal: CalDAVNamespace,
		XMLNSVcf: CardDAVNamespace,
	}
}

// AddPropStatus records a per-resource response with found and missing
// property sets, each with its own propstat/status block.
func (m *MultiStatus) AddPropStatus(href string, found, missing []Any) {
	r := multiResponse{Href: wp.URLEncode(href)}
	if len(found) > 0 {
		r.Props = append(r.Props, multiProp{
			Prop:       prop{Any: found},
			PropStatus: "HTTP/1.1 200 OK",
		})
	}
	if len(missing) > 0 {
		r.Props = append(r.Props, multiProp{
			Prop:       prop{Any: missing},
			PropStatus: "HTTP/1.1 404 Not Found",
		})
	}
	m.Response = append(m.Response, r)
}

// AddStatus records a bare per-resource status, used for partial-failure
// multistatus bodies (recursive DELETE, relocate).
func (m *MultiStatus) AddStatus(href string, err error) {
	m.Response = append(m.Response, multiResponse{
		Href:   wp.URLEncode(href),
		Status: err.Error(),
	})
}

// Empty reports whether no responses have been added.
func (m *MultiStatus) Empty() bool {
	return len(m.Response) == 0
}

// http://www.webdav.org/specs/rfc4918.html#status.code.extensions.to.http11
const StatusMulti = 207

// Send serializes and writes the multistatus body as a 207 response.
func (m *MultiStatus) Send(w http.ResponseWriter) {
	b, err := xml.MarshalIndent(m, "", " ")
	if err != nil {
		panic(err)
	}
	b = append([]byte(xml.Header), b...)
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(StatusMulti)
	w.Write(b)
}

type propfind struct {
	XMLName  xml.Name  `xml:"propfind"`
	AllProp  *struct{} `xml:"allprop"`
	PropName *struct{} `xml:"propname"`
	Prop     prop
}

// PropFindRequest is the parsed body of a PROPFIND request.
type PropFindRequest struct {
	AllProp, PropName bool
	PropertyNames     []string
}

// ParsePropFind parses a PROPFIND request body. A body-less request defaults
// to allprop per RFC 4918 §9.1.
func ParsePropFind(in io.Reader) (PropFindRequest, error) {
	req := PropFindRequest{}

	d := boundedDecoder(in)
	pf := propfind{}
	if err := d.Decode(&pf); err != nil {
		if err == io.EOF {
			req.AllProp = true
			return req, nil
		}
		return req, err
	}

	req.AllProp = pf.AllProp != nil
	req.PropName = pf.PropName != nil

	names := make([]string, 0, len(pf.Prop.Any))
	for _, v := range pf.Prop.Any {
		if v.XMLName.Local == "" {
			continue
		}
		names = append(names, x2s(v.XMLName))
	}
	req.PropertyNames = names
	return req, nil
}

// PropPatchRequest is the parsed body of a PROPPATCH request.
type PropPatchRequest struct {
	Set, Remove map[string]string
}

// ParsePropPatch parses a PROPPATCH request body.
func ParsePropPatch(in io.Reader) (PropPatchRequest, error) {
	// Token-level decoding is used (rather than unmarshalling the whole
	// document) so the client's set/remove ordering is respected.
	dec := boundedDecoder(in)

	req := PropPatchRequest{
		Set:    make(map[string]string),
		Remove: make(map[string]string),
	}

	if _, err := findToken(dec, "propertyupdate", ""); err != nil {
		return req, err
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return req, err
		}

		if ee, ok := tok.(xml.EndElement); ok {
			if ee.Name.Local == "propertyupdate" {
				break
			}
			continue
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if se.Name.Local != "set" && se.Name.Local != "remove" {
			dec.Skip()
			continue
		}

		pt, err := findToken(dec, "prop", se.Name.Local)
		if err != nil {
			return req, err
		}

		p := prop{}
		dec.DecodeElement(&p, pt)

		var add, sub map[string]string
		if se.Name.Local == "set" {
			add, sub = req.Set, req.Remove
		} else {
			add, sub = req.Remove, req.Set
		}

		for _, a := range p.Any {
			n := x2s(a.XMLName)
			add[n] = a.Value
			delete(sub, n)
		}
	}
	return req, nil
}

// findToken consumes tokens in the given decoder until either the given
// name is found, EOF, or the given end token is found. In the latter case
// the return is (nil, nil).
func findToken(d *xml.Decoder, name, halt string) (*xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local == name {
				return &se, nil
			}
			d.Skip()
		}
		if ee, ok := tok.(xml.EndElement); ok {
			if ee.Name.Local == halt {
				return nil, nil
			}
		}
	}
}

type lockinfo struct {
	XMLName   xml.Name  `xml:"lockinfo"`
	Exclusive *struct{} `xml:"lockscope>exclusive"`
	Shared    *struct{} `xml:"lockscope>shared"`
	Write     *struct{} `xml:"locktype>write"`
	Owner     string    `xml:"owner"`
}

// LockRequest is the parsed body of a LOCK request. A body-less request
// (lock refresh) is reported via Refresh == true.
type LockRequest struct {
	Owner   string
	Shared  bool
	Refresh bool
}

// ParseLock parses a LOCK request body.
func ParseLock(in io.Reader) (LockRequest, error) {
	req := LockRequest{}
	d := boundedDecoder(in)
	li := lockinfo{}
	err := d.Decode(&li)
	if err == io.EOF {
		req.Refresh = true
		return req, nil
	} else if err != nil {
		return req, err
	}
	if li.Exclusive == nil && li.Shared == nil {
		return req, errors.New("lockscope required")
	}
	if li.Write == nil {
		return req, errors.New("locktype must be write")
	}
	req.Shared = li.Shared != nil
	req.Owner = li.Owner
	return req, nil
}

// SendProp writes a single property element as an application/xml response,
// used by LOCK to echo back the lockdiscovery.
func SendProp(inner Any, w http.ResponseWriter) error {
	p := prop{
		Any:   []Any{inner},
		XMLNS: DAVNamespace,
	}
	b, err := xml.MarshalIndent(p, "", " ")
	if err != nil {
		return err
	}
	b = append([]byte(xml.Header), b...)
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.Write(b)
	return nil
}
