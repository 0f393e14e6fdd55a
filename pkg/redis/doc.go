// Package redis connects to Redis and provides Store, the Redis
// implementation of backlog.Store.
//
// The key layout written by Store is the one shared by every backlog client
// pointed at the same Redis database:
//
//	{namespace}:{queue}:id            INCR counter
//	{namespace}:{queue}:todo          list, LPUSH / BLMOVE RIGHT
//	{namespace}:{queue}:doing         list
//	{namespace}:{queue}:completed     bitmap
//	{namespace}:{queue}:unworkable    bitmap
//	{namespace}:{item}:{id}           hash
//	{namespace}:{item}:{id}:claimed   string with PX expiry
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	b, err := backlog.New(redis.NewStore(client), backlog.WithNamespace("billing"))
//
// Healthcheck returns a probe function for readiness checks.
//
// Blocking claims hold a pooled connection for up to the wait timeout; size
// the pool (REDIS_POOL_SIZE) for the number of concurrent claimers.
package redis
