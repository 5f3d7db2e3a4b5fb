/*
Package res provides a framework for building REST, real time, and RPC APIs,
where all your reactive web clients are synchronized seamlessly through
Resgate:

https://resgate.io

A service connects to NATS and listens for requests under its own resource
name prefix. Create a service with a handler for a model resource:

	s := res.NewService("example")
	s.Handle("mymodel",
		res.Model(),
		res.GetModel(func(r res.ModelRequest) {
			r.Model(map[string]string{"greeting": "welcome"})
		}),
		res.Access(res.AccessGranted),
	)
	s.ListenAndServe("nats://127.0.0.1:4222")

# Usage

Add handlers for a collection resource:

	s.Handle("mycollection",
		res.Collection(),
		res.GetCollection(func(r res.CollectionRequest) {
			r.Collection([]string{"first", "second", "third"})
		}),
	)

Add handlers for parameterized resources:

	s.Handle("article.$id",
		res.Model(),
		res.GetModel(func(r res.ModelRequest) {
			article := getArticle(r.PathParam("id"))
			if article == nil {
				r.NotFound()
			} else {
				r.Model(article)
			}
		}),
	)

Add handlers for method calls:

	s.Handle("math",
		res.Call("double", func(r res.CallRequest) {
			var p struct {
				Value int `json:"value"`
			}
			r.ParseParams(&p)
			r.OK(p.Value * 2)
		}),
	)

Send change event on model update. A change event will update the model on
all subscribing clients:

	s.With("example.mymodel", func(r res.Resource) {
		r.ChangeEvent(map[string]interface{}{"greeting": "hello"})
	})

Send add event on collection update:

	s.With("example.mycollection", func(r res.Resource) {
		r.AddEvent("fourth", 3)
	})

Add handlers for authentication:

	s.Handle("myauth",
		res.Auth("login", func(r res.AuthRequest) {
			var p struct {
				Password string `json:"password"`
			}
			r.ParseParams(&p)
			if p.Password != "mysecret" {
				r.InvalidParams("Wrong password")
			} else {
				r.TokenEvent(map[string]string{"user": "admin"})
				r.OK(nil)
			}
		}),
	)

Add handlers for access control:

	s.Handle("mymodel",
		res.Access(func(r res.AccessRequest) {
			var t struct {
				User string `json:"user"`
			}
			r.ParseToken(&t)
			if t.User == "admin" {
				r.AccessGranted()
			} else {
				r.AccessDenied()
			}
		}),
	)

Start service in background:

	go s.ListenAndServe("nats://127.0.0.1:4222")

Stop service:

	s.Shutdown()
*/
package res
