package htmlpretty

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "nested",
			in:   `<ul><li><a href="/a">a</a></li></ul>`,
			want: "<ul>\n  <li>\n    <a href=\"/a\">\n      a\n    </a>\n  </li>\n</ul>\n",
		},
		{
			name: "attributes wrap",
			in:   `<a href="/a" class="x" data-id="1">t</a>`,
			want: "<a href=\"/a\"\n   class=\"x\"\n   data-id=\"1\">\n  t\n</a>\n",
		},
		{
			name: "void and self closing",
			in:   "<p>a<br>b<img src=\"x.png\"/></p>",
			want: "<p>\n  a\n  <br>\n  b\n  <img src=\"x.png\" />\n</p>\n",
		},
		{
			name: "whitespace text dropped",
			in:   "<div>\n   \n<span>x</span>\n</div>",
			want: "<div>\n  <span>\n    x\n  </span>\n</div>\n",
		},
		{
			name: "pre kept verbatim",
			in:   "<pre>  a\n    b</pre>",
			want: "<pre>\n  a\n    b\n</pre>\n",
		},
		{
			name: "comment",
			in:   "<!-- c --><i>x</i>",
			want: "<!-- c -->\n<i>\n  x\n</i>\n",
		},
		{
			name: "boolean attribute",
			in:   `<input disabled>`,
			want: "<input disabled>\n",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Format(tc.in)
			if err != nil {
				t.Fatalf("Format returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Format(%q) =\n%s\nwant\n%s", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormat_UnbalancedEndTag(t *testing.T) {
	got := MustFormat("</div><p>x</p>")
	want := "</div>\n<p>\n  x\n</p>\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
