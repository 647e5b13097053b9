package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/newtube/newtube/internal/config"
)

func TestCommentCounterDisabledWithoutURL(t *testing.T) {
	counter, client := commentCounter(context.Background(), "")
	if counter != nil || client != nil {
		t.Errorf("expected no cache without REDIS_URL, got %v %v", counter, client)
	}
}

func TestCommentCounterFallsBackWhenUnreachable(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	url := "redis://" + srv.Addr()
	srv.Close()

	counter, client := commentCounter(context.Background(), url)
	if counter != nil || client != nil {
		t.Error("expected no cache when redis is unreachable")
	}
}

func TestCommentCounterConnects(t *testing.T) {
	srv := miniredis.RunT(t)

	counter, client := commentCounter(context.Background(), "redis://"+srv.Addr())
	if counter == nil || client == nil {
		t.Fatal("expected cache to be enabled")
	}
	defer client.Close()

	_, gen, _ := counter.GetCount(context.Background(), "v1")
	counter.SetCount(context.Background(), "v1", 7, gen)
	if n, _, ok := counter.GetCount(context.Background(), "v1"); !ok || n != 7 {
		t.Errorf("expected cached 7, got %d %v", n, ok)
	}
}

func TestMetadataGeneratorRequiresAPIKey(t *testing.T) {
	if gen := metadataGenerator(&config.Config{}); gen != nil {
		t.Errorf("expected nil generator without key, got %T", gen)
	}
	if gen := metadataGenerator(&config.Config{OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini"}); gen == nil {
		t.Error("expected generator when key is set")
	}
}
