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

// Package htmlindex renders an HTML directory listing for a WebDAV
// collection, for the benefit of browser clients hitting GET directly on a
// directory. It is the one ambient component built on the standard library
// rather than a third-party templating engine, since nothing in the
// retrieved corpus pulls one in (see DESIGN.md).
package htmlindex

import (
	"html/template"
	"net/http"
	"path"
	"sort"

	w "github.com/omarbenhamid/godav"
	wp "github.com/omarbenhamid/godav/path"
)

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head><title>Index of {{.Base}}</title></head>
<body>
<h1>Index of {{.Base}}</h1>
<table>
<tr><th>Name</th><th>Size</th><th>Modified</th></tr>
{{if ne .Base "/"}}<tr><td><a href="../">../</a></td><td></td><td></td></tr>{{end}}
{{range .Entries}}<tr><td><a href="{{.Name}}{{if .IsDir}}/{{end}}">{{.Name}}{{if .IsDir}}/{{end}}</a></td><td>{{if not .IsDir}}{{.Size}}{{end}}</td><td>{{.Modified}}</td></tr>
{{end}}</table>
</body>
</html>
`))

type row struct {
	Name     string
	IsDir    bool
	Size     int64
	Modified string
}

type listingData struct {
	Base    string
	Entries []row
}

// Renderer implements webdav.CollectionRenderer using html/template.
type Renderer struct{}

// Render writes an HTML directory listing for base's entries. The base path
// itself (depth-0 entry) is skipped if present in entries, since the page is
// its listing; a separate "../" link to the parent is added for any base
// other than "/".
func (Renderer) Render(hw http.ResponseWriter, base string, entries []w.File) error {
	rows := make([]row, 0, len(entries))
	for _, f := range entries {
		if f.GetPath() == base {
			continue
		}
		fi, err := f.Stat()
		if err != nil {
			continue
		}
		rows = append(rows, row{
			Name:     path.Base(f.GetPath()),
			IsDir:    f.IsDirectory(),
			Size:     fi.Size,
			Modified: wp.FormatRFC1123(fi.LastModified),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].IsDir != rows[j].IsDir {
			return rows[i].IsDir
		}
		return rows[i].Name < rows[j].Name
	})

	hw.Header().Set("Content-Type", "text/html; charset=utf-8")
	return listingTemplate.Execute(hw, listingData{Base: wp.URLEncode(base), Entries: rows})
}
