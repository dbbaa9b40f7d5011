package personas

import (
	"strings"
	"testing"
)

func TestLoadBuiltinCatalog(t *testing.T) {
	c, err := Load(false)
	if err != nil {
		t.Fatalf("не удалось загрузить каталог: %v", err)
	}
	list := c.List()
	if len(list) != 3 {
		t.Fatalf("ожидали 3 персонажа, получили %d", len(list))
	}
	wantIDs := []string{"luna", "drjun", "karma"}
	for i, id := range wantIDs {
		if list[i].ID != id {
			t.Fatalf("позиция %d: ожидали %s, получили %s", i, id, list[i].ID)
		}
	}

	luna, ok := c.Get("luna")
	if !ok || luna.Name != "Luna, the Moon Spirit" || luna.Color != "text-indigo-400" || luna.BgColor != "bg-indigo-500/20" {
		t.Fatalf("неверные данные luna: %+v", luna)
	}
	labels := []string{"**Recommended Content Category:**", "**YouTube Search Keywords:**", "**Keywords:**", "**Mood Score:**"}
	for _, p := range list {
		last := -1
		for _, label := range labels {
			idx := strings.Index(p.SystemPrompt, label)
			if idx <= last {
				t.Fatalf("%s: метка %s отсутствует или стоит не по порядку", p.ID, label)
			}
			last = idx
		}
	}
	if _, ok := c.Get("unknown"); ok {
		t.Fatalf("неизвестный персонаж не должен находиться")
	}
	if len(c.Categories()) != 7 {
		t.Fatalf("ожидали 7 категорий, получили %d", len(c.Categories()))
	}
}

func TestLoadStructuredCatalog(t *testing.T) {
	c, err := Load(true)
	if err != nil {
		t.Fatalf("не удалось загрузить каталог: %v", err)
	}
	p, _ := c.Get("drjun")
	if !strings.Contains(p.SystemPrompt, `"moodScore"`) || strings.Contains(p.SystemPrompt, "**Mood Score:**") {
		t.Fatalf("структурированная подсказка собрана неверно")
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	data := []byte("personas:\n  - id: a\n    name: A\n  - id: a\n    name: B\n")
	if _, err := parse(data, false); err == nil {
		t.Fatalf("ожидали ошибку для повторяющегося id")
	}
}

func TestListReturnsCopy(t *testing.T) {
	c, _ := Load(false)
	list := c.List()
	list[0].Name = "changed"
	if p, _ := c.Get(list[0].ID); p.Name == "changed" {
		t.Fatalf("каталог изменился через возвращённый срез")
	}
	if c.List()[0].Name == "changed" {
		t.Fatalf("каталог изменился через возвращённый срез")
	}
}
