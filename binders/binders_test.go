package binders

import (
	"errors"
	"testing"

	tether "github.com/goliatone/go-tether"
	"github.com/goliatone/go-tether/formatters"
	"github.com/goliatone/go-tether/observe"
	"golang.org/x/net/html"
)

func mustBind(t *testing.T, src string, model map[string]any, opts ...tether.Option) (*html.Node, *observe.Object, *tether.View) {
	t.Helper()
	root, err := tether.ParseFragment(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	models := observe.FromMap(model)
	base := []tether.Option{
		tether.WithBinders(Default()),
		tether.WithFormatters(formatters.Default()),
		tether.WithLogger(tether.NopLogger()),
	}
	view, err := tether.Bind(tether.Children(root), models, append(base, opts...)...)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	return root, models, view
}

func assertRender(t *testing.T, root *html.Node, want string) {
	t.Helper()
	if got := tether.RenderString(root); got != want {
		t.Fatalf("unexpected render\n got %s\nwant %s", got, want)
	}
}

func TestRegisterReportsDuplicates(t *testing.T) {
	reg := Default()
	if err := Register(reg); err == nil {
		t.Fatalf("expected duplicates to be reported")
	}
	if _, ok := reg.Resolve("class-active"); !ok {
		t.Fatalf("expected class-* to resolve")
	}
	if got, _ := reg.Resolve("href"); got.Name != tether.FallbackBinder {
		t.Fatalf("expected attribute fallback, got %q", got.Name)
	}
}

func TestEachRendersListAndTracksMutations(t *testing.T) {
	root, models, view := mustBind(t, `<ul><li rv-each-todo="todos">{todo.title} of {owner}</li></ul>`, map[string]any{
		"owner": "ann",
		"todos": []any{
			map[string]any{"title": "a"},
			map[string]any{"title": "b"},
		},
	})
	const marker = `<!-- tether: each-todo todos -->`
	assertRender(t, root, `<ul><li>a of ann</li><li>b of ann</li>`+marker+`</ul>`)

	todos := models.Get("todos").(*observe.List)
	todos.Push(observe.NewObject(map[string]any{"title": "c"}))
	assertRender(t, root, `<ul><li>a of ann</li><li>b of ann</li><li>c of ann</li>`+marker+`</ul>`)

	todos.Splice(0, 1)
	assertRender(t, root, `<ul><li>b of ann</li><li>c of ann</li>`+marker+`</ul>`)

	models.Set("owner", "bo")
	assertRender(t, root, `<ul><li>b of bo</li><li>c of bo</li>`+marker+`</ul>`)

	models.Set("todos", observe.NewList())
	assertRender(t, root, `<ul>`+marker+`</ul>`)

	view.Unbind()
	if got := view.Registry().Len(); got != 0 {
		t.Fatalf("expected no observations after unbind, got %d", got)
	}
}

func TestEachExposesIndex(t *testing.T) {
	root, models, _ := mustBind(t, `<p rv-each-item="items">{%item%}:{item}:{$index}</p>`, map[string]any{
		"items": []any{"x", "y"},
	})
	const marker = `<!-- tether: each-item items -->`
	assertRender(t, root, `<p>0:x:0</p><p>1:y:1</p>`+marker)

	models.Get("items").(*observe.List).Reverse()
	assertRender(t, root, `<p>0:y:0</p><p>1:x:1</p>`+marker)
}

func TestEachItemBindingsOnSameNode(t *testing.T) {
	root, _, _ := mustBind(t, `<li rv-each-tag="tags" rv-class-hot="tag.hot" rv-text="tag.name"></li>`, map[string]any{
		"tags": []any{
			map[string]any{"name": "go", "hot": true},
			map[string]any{"name": "js", "hot": false},
		},
	})
	assertRender(t, root, `<li class="hot">go</li><li>js</li><!-- tether: each-tag tags -->`)
}

func TestIfTogglesSubtree(t *testing.T) {
	root, models, view := mustBind(t, `<div><p rv-if="show" rv-text="msg"></p></div>`, map[string]any{
		"show": true,
		"msg":  "hi",
	})
	const marker = `<!-- tether: if show -->`
	assertRender(t, root, `<div><p>hi</p>`+marker+`</div>`)

	models.Set("msg", "hello")
	assertRender(t, root, `<div><p>hello</p>`+marker+`</div>`)

	models.Set("show", false)
	assertRender(t, root, `<div>`+marker+`</div>`)

	models.Set("msg", "hidden")
	models.Set("show", 1)
	assertRender(t, root, `<div><p>hidden</p>`+marker+`</div>`)

	view.Unbind()
	if got := view.Registry().Len(); got != 0 {
		t.Fatalf("expected no observations after unbind, got %d", got)
	}
	models.Set("msg", "gone")
	assertRender(t, root, `<div><p>hidden</p>`+marker+`</div>`)
}

func TestIfStartsHidden(t *testing.T) {
	root, models, _ := mustBind(t, `<section rv-if="user"><b>{user.name}</b></section>`, map[string]any{"user": nil})
	const marker = `<!-- tether: if user -->`
	assertRender(t, root, marker)

	models.Set("user", observe.NewObject(map[string]any{"name": "Ann"}))
	assertRender(t, root, `<section><b>Ann</b></section>`+marker)
}

func TestValuePublishesOnInput(t *testing.T) {
	root, models, view := mustBind(t, `<input rv-value="name"/><textarea rv-value="bio"></textarea>`, map[string]any{
		"name": "ann",
		"bio":  "hello",
	})
	assertRender(t, root, `<input value="ann"/><textarea>hello</textarea>`)

	input := root.FirstChild
	tether.SetAttr(input, "value", "bo")
	if err := view.Dispatch(input, "input", nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := models.Get("name"); got != "bo" {
		t.Fatalf("expected bo, got %v", got)
	}

	textarea := input.NextSibling
	tether.SetTextContent(textarea, "bye")
	if err := view.Dispatch(textarea, "change", nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := models.Get("bio"); got != "bye" {
		t.Fatalf("expected bye, got %v", got)
	}
}

func TestValueWithNumberFormatter(t *testing.T) {
	root, models, view := mustBind(t, `<input rv-value="qty | number"/>`, map[string]any{"qty": 2})
	input := root.FirstChild

	tether.SetAttr(input, "value", "7")
	if err := view.Dispatch(input, "change", nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := models.Get("qty"); got != 7 {
		t.Fatalf("expected numeric 7, got %v (%T)", got, got)
	}
}

func TestValueSelect(t *testing.T) {
	src := `<select rv-value="color"><option value="r">Red</option><option value="g">Green</option></select>`
	root, models, view := mustBind(t, src, map[string]any{"color": "g"})
	assertRender(t, root, `<select><option value="r">Red</option><option value="g" selected="">Green</option></select>`)

	options := tether.Options(root.FirstChild)
	tether.RemoveAttr(options[1], "selected")
	tether.SetAttr(options[0], "selected", "")
	if err := view.Dispatch(root.FirstChild, "change", nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := models.Get("color"); got != "r" {
		t.Fatalf("expected r, got %v", got)
	}
}

func TestCheckedCheckboxAndRadio(t *testing.T) {
	src := `<input type="checkbox" rv-checked="done"/>` +
		`<input type="radio" value="a" rv-checked="pick"/>` +
		`<input type="radio" value="b" rv-checked="pick"/>` +
		`<input type="checkbox" rv-unchecked="done"/>`
	root, models, view := mustBind(t, src, map[string]any{"done": true, "pick": "b"})
	assertRender(t, root, `<input type="checkbox" checked=""/>`+
		`<input type="radio" value="a"/>`+
		`<input type="radio" value="b" checked=""/>`+
		`<input type="checkbox"/>`)

	nodes := tether.Children(root)
	tether.RemoveAttr(nodes[0], "checked")
	if err := view.Dispatch(nodes[0], "change", nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := models.Get("done"); got != false {
		t.Fatalf("expected done false, got %v", got)
	}
	if _, checked := tether.Attr(nodes[3], "checked"); !checked {
		t.Fatalf("expected unchecked binder to check its box")
	}

	if err := view.Dispatch(nodes[1], "change", nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := models.Get("pick"); got != "a" {
		t.Fatalf("expected pick a, got %v", got)
	}
	if _, checked := tether.Attr(nodes[2], "checked"); checked {
		t.Fatalf("expected the other radio to be cleared")
	}
}

func TestOnRegistersHandlers(t *testing.T) {
	var clicks int
	var seen *observe.Object
	root, models, view := mustBind(t, `<button rv-on-click="save" rv-on-focus="focus"></button>`, map[string]any{
		"save":  func(tether.Event) { clicks++ },
		"focus": 42,
	})
	button := root.FirstChild

	if err := view.Dispatch(button, "click", nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if clicks != 1 {
		t.Fatalf("expected one click, got %d", clicks)
	}

	models.Set("save", func(_ tether.Event, m *observe.Object) error {
		seen = m
		return errors.New("rejected")
	})
	if got := view.Listeners(button, "click"); got != 1 {
		t.Fatalf("expected the handler to be swapped, got %d listeners", got)
	}
	if err := view.Dispatch(button, "click", nil); err == nil {
		t.Fatalf("expected handler error")
	}
	if seen != models || clicks != 1 {
		t.Fatalf("expected the new handler with the view models")
	}

	if err := view.Dispatch(button, "focus", nil); err == nil {
		t.Fatalf("expected unsupported handler type to report an error")
	}

	models.Set("save", nil)
	if got := view.Listeners(button, "click"); got != 0 {
		t.Fatalf("expected nil handler to clear listeners, got %d", got)
	}

	view.Unbind()
	if got := view.Listeners(button, "focus"); got != 0 {
		t.Fatalf("expected unbind to clear listeners, got %d", got)
	}
}

func TestContentBinders(t *testing.T) {
	src := `<p rv-html="markup"></p>` +
		`<p class="card" rv-class-active="on"></p>` +
		`<p style="color: red" rv-show="visible"></p>` +
		`<p rv-hide="busy"></p>` +
		`<button rv-disabled="busy"></button>` +
		`<button rv-enabled="busy"></button>` +
		`<a rv-href="url"></a>`
	root, models, _ := mustBind(t, src, map[string]any{
		"markup":  "<b>hi</b>",
		"on":      true,
		"visible": false,
		"busy":    true,
		"url":     "/home",
	})
	assertRender(t, root, `<p><b>hi</b></p>`+
		`<p class="card active"></p>`+
		`<p style="color: red; display: none;"></p>`+
		`<p style="display: none;"></p>`+
		`<button disabled=""></button>`+
		`<button></button>`+
		`<a href="/home"></a>`)

	models.Set("on", false)
	models.Set("visible", true)
	models.Set("busy", false)
	models.Set("url", nil)
	assertRender(t, root, `<p><b>hi</b></p>`+
		`<p class="card"></p>`+
		`<p style="color: red;"></p>`+
		`<p></p>`+
		`<button></button>`+
		`<button disabled=""></button>`+
		`<a></a>`)
}

func TestTextFormatterPipeline(t *testing.T) {
	root, models, _ := mustBind(t, `<span rv-text="n | plus 3 | times 2"></span><span rv-text="'5' | plus 3"></span>`, map[string]any{"n": 5})
	assertRender(t, root, `<span>16</span><span>8</span>`)

	models.Set("n", 0)
	assertRender(t, root, `<span>6</span><span>8</span>`)
}

func TestEachRebindRendersFreshItems(t *testing.T) {
	root, models, view := mustBind(t, `<ul><li rv-each-todo="todos">{todo}</li></ul>`, map[string]any{
		"todos": []any{"a", "b"},
	})
	const marker = `<!-- tether: each-todo todos -->`
	assertRender(t, root, `<ul><li>a</li><li>b</li>`+marker+`</ul>`)

	view.Unbind()
	if err := view.Bind(); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	models.Set("todos", observe.NewList("x", "y"))
	assertRender(t, root, `<ul><li>x</li><li>y</li>`+marker+`</ul>`)

	models.Get("todos").(*observe.List).Push("z")
	assertRender(t, root, `<ul><li>x</li><li>y</li><li>z</li>`+marker+`</ul>`)

	view.Unbind()
	if got := view.Registry().Len(); got != 0 {
		t.Fatalf("expected no observations after unbind, got %d", got)
	}
}
